// pkg/parser/parser.go
package parser

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
)

// ErrNotStructured is returned when a body cannot be decoded as JSON.
var ErrNotStructured = errors.New("content is not structured data")

// wordShape accepts a letter, then letters/apostrophes/hyphens, then a letter.
var wordShape = regexp.MustCompile(`^[a-z][a-z'-]*[a-z]$`)

// utf8BOM is the byte-order mark some editors prepend to UTF-8 files.
var utf8BOM = []byte("\xef\xbb\xbf")

// lineBreak matches both bare and carriage-return-prefixed line endings.
var lineBreak = regexp.MustCompile(`\r?\n`)

type Parser struct{}

func New() *Parser {
	return &Parser{}
}

// ParseWordList extracts words from newline-delimited word list content.
// Lines that do not look like a word are dropped silently.
func (p *Parser) ParseWordList(content []byte) []string {
	var words []string
	for _, line := range lineBreak.Split(string(StripBOM(content)), -1) {
		word := Normalize(line)
		if IsWordShaped(word) {
			words = append(words, word)
		}
	}
	return words
}

// ParseStructured decodes a JSON body. The result is whatever the JSON
// describes; callers decide which shapes they understand.
func (p *Parser) ParseStructured(content []byte) (any, error) {
	var data any
	if err := json.Unmarshal(StripBOM(content), &data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotStructured, err)
	}
	return data, nil
}

// ParseWords extracts candidate words from HTML content
func (p *Parser) ParseWords(content []byte) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}

	// if its script or style ignore
	doc.Find("script, style, noscript").Remove()

	var words []string
	doc.Find("*").Contents().Each(func(_ int, s *goquery.Selection) {
		if goquery.NodeName(s) != "#text" {
			return
		}
		for _, field := range strings.FieldsFunc(s.Text(), isSeparator) {
			word := cleanWord(field)
			if word != "" {
				words = append(words, word)
			}
		}
	})
	return words, nil
}

// StripBOM removes a leading UTF-8 byte-order mark.
func StripBOM(content []byte) []byte {
	return bytes.TrimPrefix(content, utf8BOM)
}

// Normalize trims surrounding whitespace and lowercases a word.
func Normalize(word string) string {
	return strings.ToLower(strings.TrimSpace(word))
}

// IsWordShaped reports whether an already normalized word starts and ends
// with a letter and contains only letters, apostrophes and hyphens.
func IsWordShaped(word string) bool {
	return wordShape.MatchString(word)
}

// isSeparator splits page text on anything that cannot be part of a word.
func isSeparator(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\'' && r != '-' && r != '’'
}

// cleanWord lowercases a token, folds typographic apostrophes and strips
// leading/trailing punctuation.
func cleanWord(word string) string {
	word = strings.ToLower(word)
	word = strings.ReplaceAll(word, "’", "'")
	return strings.Trim(word, "'-")
}
