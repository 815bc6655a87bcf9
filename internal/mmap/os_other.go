//go:build !unix && !windows

package mmap

func osMapAnon(size int) ([]byte, func([]byte) error, error) {
	return nil, nil, ErrUnsupported
}

func osAdvise(data []byte, pattern AccessPattern) error {
	return nil
}
