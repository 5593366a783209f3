package iocli

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pipeInput возвращает файл, из которого читается input
func pipeInput(t *testing.T, input string) *os.File {
	t.Helper()
	r, w, err := os.Pipe()
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })

	// Пишем в pipe в отдельной горутине, имитируя ввод пользователя
	go func() {
		_, _ = w.Write([]byte(input))
		_ = w.Close()
	}()
	return r
}

// Проверяем что NewStdio возвращает валидный объект
func TestNewStdio(t *testing.T) {
	stdio := NewStdio()
	assert.NotNil(t, stdio)
}

func TestPrintlnAndPrintf(t *testing.T) {
	var out bytes.Buffer
	console := NewFileIO(pipeInput(t, ""), &out)

	console.Println("hello", "world")
	console.Printf("test %d %s", 1, "abc")
	_, err := console.Write([]byte("!"))
	require.NoError(t, err)

	assert.Equal(t, "hello world\ntest 1 abc!", out.String())
}

func TestReadInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{name: "single line", input: "user input\n", want: []string{"user input"}},
		{name: "trims spaces", input: "  conv-1  \n", want: []string{"conv-1"}},
		{name: "last line without newline", input: "first\nsecond", want: []string{"first", "second"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			console := NewFileIO(pipeInput(t, tt.input), &out)

			for _, want := range tt.want {
				got, err := console.ReadInput("Prompt: ")
				require.NoError(t, err)
				assert.Equal(t, want, got)
			}
			assert.Contains(t, out.String(), "Prompt: ")

			_, err := console.ReadInput("Prompt: ")
			assert.Error(t, err)
		})
	}
}

// Pipe не терминал: токен читается как обычная строка
func TestReadPassword_NotTerminal(t *testing.T) {
	var out bytes.Buffer
	console := NewFileIO(pipeInput(t, "secret-token\n"), &out)

	got, err := console.ReadPassword("Token: ")
	require.NoError(t, err)
	assert.Equal(t, "secret-token", got)
}
