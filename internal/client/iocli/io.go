// Package iocli абстрагирует ввод и вывод консольного клиента,
// чтобы команды можно было тестировать без терминала.
package iocli

//go:generate moq -out io_mock.go . IO

// IO консольный ввод-вывод команд
type IO interface {
	Println(a ...any)
	Printf(format string, a ...any)
	ReadInput(prompt string) (string, error)
	// ReadPassword читает секрет без эха, если ввод является терминалом
	ReadPassword(prompt string) (string, error)
	Write(p []byte) (n int, err error)
}
