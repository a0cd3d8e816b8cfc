// Package iocli abstracts terminal input and output of the CLI commands.
package iocli

// IO is the terminal seen by a command.
type IO interface {
	Println(a ...any)
	Printf(format string, a ...any)
	ReadInput(prompt string) (string, error)
	ReadPassword(prompt string) (string, error)
	Write(p []byte) (n int, err error)
}
