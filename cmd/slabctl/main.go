// Command slabctl configures, exercises and inspects slabkit allocators.
package main

func main() {
	execute()
}
