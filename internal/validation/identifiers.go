package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// IDPattern допустимый формат идентификаторов бесед, документов и пользователей:
// латинские буквы, цифры, '_', '-', '.', ':'
var IDPattern = regexp.MustCompile(`^[a-zA-Z0-9_.:-]+$`)

const (
	// MaxIDLen максимальная длина идентификатора
	MaxIDLen = 128
	// MaxEmojiLen максимальная длина реакции в символах
	MaxEmojiLen = 16
)

// ValidateID проверяет идентификатор беседы, документа или пользователя.
// kind используется в тексте ошибки ("conversation id", "document id").
func ValidateID(kind, id string) error {
	if id == "" {
		return fmt.Errorf("%s cannot be empty", kind)
	}

	if len(id) > MaxIDLen {
		return fmt.Errorf("%s must not exceed %d characters", kind, MaxIDLen)
	}

	if !IDPattern.MatchString(id) {
		return fmt.Errorf("%s can only contain letters, numbers, '_', '-', '.' and ':'", kind)
	}

	return nil
}

// ValidateEmoji проверяет реакцию: непустая строка UTF-8 без пробелов и '/'
func ValidateEmoji(emoji string) error {
	if emoji == "" {
		return fmt.Errorf("emoji cannot be empty")
	}

	if !utf8.ValidString(emoji) {
		return fmt.Errorf("emoji must be valid UTF-8")
	}

	if utf8.RuneCountInString(emoji) > MaxEmojiLen {
		return fmt.Errorf("emoji must not exceed %d characters", MaxEmojiLen)
	}

	for _, r := range emoji {
		if r == ' ' || r == '/' || r < 0x20 {
			return fmt.Errorf("emoji contains invalid character %q", r)
		}
	}

	return nil
}

// MaxBodyLen максимальная длина текста сообщения в байтах
const MaxBodyLen = 4096

// ValidateMessageBody проверяет текст сообщения: непустой и не длиннее MaxBodyLen
func ValidateMessageBody(body string) error {
	if strings.TrimSpace(body) == "" {
		return errors.New("body is required")
	}
	if len(body) > MaxBodyLen {
		return errors.New("body is too long")
	}
	return nil
}
