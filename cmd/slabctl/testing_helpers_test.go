package main

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"
)

// captureOutput captures stdout while running a function
func captureOutput(t *testing.T, fn func() error) (string, error) {
	t.Helper()

	origStdout := os.Stdout

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	os.Stdout = w

	done := make(chan struct{})
	var buf bytes.Buffer
	go func() {
		_, _ = buf.ReadFrom(r)
		close(done)
	}()

	fnErr := fn()

	w.Close()
	os.Stdout = origStdout
	<-done

	return buf.String(), fnErr
}

// assertJSON checks that output is valid JSON
func assertJSON(t *testing.T, output string) {
	t.Helper()
	var result interface{}
	if err := json.Unmarshal([]byte(output), &result); err != nil {
		t.Errorf("output is not valid JSON: %v\nOutput: %s", err, output)
	}
}

// withFlags sets global flags for the duration of a test
func withFlags(t *testing.T, classes []string, asJSON bool) {
	t.Helper()
	oldClasses, oldJSON, oldQuiet := classSpecs, jsonOut, quiet
	classSpecs, jsonOut, quiet = classes, asJSON, false
	t.Cleanup(func() {
		classSpecs, jsonOut, quiet = oldClasses, oldJSON, oldQuiet
	})
}
