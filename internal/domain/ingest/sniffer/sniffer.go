// Package sniffer detects the dialect of delimited text files.
// It identifies the delimiter, the header row, and generates a fingerprint of
// the header so identical layouts can be recognized across uploads.
package sniffer

import (
	"bytes"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"io"
	"strings"
	"unicode"
)

// SampleSize is how many leading bytes are inspected when sniffing.
const SampleSize = 4096

// Candidates lists the delimiters the sniffer considers, in preference order.
var Candidates = []rune{',', ';', '\t', '|'}

// headerKeywords are words commonly found in sales report headers.
var headerKeywords = []string{
	"mes", "categoría", "categoria", "cantidad", "ingreso", "isv", "utilidad",
	"precio", "costo", "producto", "vendedor", "fecha", "total",
}

var (
	ErrEmptyFile        = errors.New("file is empty")
	ErrNoHeadersFound   = errors.New("could not find data headers")
	ErrInvalidDelimiter = errors.New("could not detect valid delimiter")
)

// FileConfig holds the detected configuration for a delimited file
type FileConfig struct {
	Delimiter   rune       // The field delimiter
	HeaderRow   int        // Index of the header among the non-blank records
	Headers     []string   // Detected header names
	Fingerprint string     // SHA256 hash of normalized headers
	SampleRows  [][]string // First few data rows for preview
}

// Sniff detects the delimiter from at most the first SampleSize bytes of data.
// A delimiter wins when it splits every sampled line into the same number of
// fields (more than one); ties are resolved by the widest split, then by
// Candidates order. When no delimiter is consistent, the one most often
// producing the dominant field count is used.
func Sniff(data []byte) (rune, error) {
	sample := head(data)
	if len(bytes.TrimSpace(sample)) == 0 {
		return 0, ErrEmptyFile
	}

	var (
		best       rune
		bestFields int
		fallback   rune
		fallbackN  int
	)
	for _, d := range Candidates {
		counts := fieldCounts(sample, d)
		if len(counts) == 0 {
			continue
		}

		mode, freq := modeOf(counts)
		if mode < 2 {
			continue
		}
		if freq == len(counts) {
			if mode > bestFields {
				best, bestFields = d, mode
			}
			continue
		}
		if freq > fallbackN {
			fallback, fallbackN = d, freq
		}
	}

	switch {
	case best != 0:
		return best, nil
	case fallback != 0:
		return fallback, nil
	default:
		return 0, ErrInvalidDelimiter
	}
}

// head returns the leading sample without a BOM or a trailing partial line.
func head(data []byte) []byte {
	sample := data
	if len(sample) > SampleSize {
		sample = sample[:SampleSize]
		// the last line is likely cut in half
		if i := bytes.LastIndexByte(sample, '\n'); i > 0 {
			sample = sample[:i]
		}
	}
	return bytes.TrimPrefix(sample, []byte("\xef\xbb\xbf"))
}

// SniffOrDefault returns the sniffed delimiter, or a comma when sniffing fails.
func SniffOrDefault(data []byte) rune {
	d, err := Sniff(data)
	if err != nil {
		return ','
	}
	return d
}

// fieldCounts parses the sample with the delimiter and returns the field count
// of each non-blank record. Quoted delimiters do not split fields.
func fieldCounts(sample []byte, delimiter rune) []int {
	reader := csv.NewReader(bytes.NewReader(sample))
	reader.Comma = delimiter
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	var counts []int
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil
		}
		if len(record) == 1 && strings.TrimSpace(record[0]) == "" {
			continue
		}
		counts = append(counts, len(record))
	}
	return counts
}

func modeOf(values []int) (mode, freq int) {
	seen := make(map[int]int, len(values))
	for _, v := range values {
		seen[v]++
		if seen[v] > freq || (seen[v] == freq && v > mode) {
			mode, freq = v, seen[v]
		}
	}
	return mode, freq
}

// DetectConfig analyzes the leading sample of a delimited file and returns
// its configuration.
func DetectConfig(data []byte) (*FileConfig, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyFile
	}

	delimiter, err := Sniff(data)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(bytes.NewReader(head(data)))
	reader.Comma = delimiter
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	var records [][]string
	for len(records) <= maxHeaderRow+previewRows {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}
		records = append(records, record)
	}

	idx := HeaderRow(records)
	if idx < 0 {
		return nil, ErrNoHeadersFound
	}

	headers := make([]string, len(records[idx]))
	for i, h := range records[idx] {
		headers[i] = strings.TrimSpace(h)
	}
	rows := records[idx+1:]
	if len(rows) > previewRows {
		rows = rows[:previewRows]
	}

	return &FileConfig{
		Delimiter:   delimiter,
		HeaderRow:   idx,
		Headers:     headers,
		Fingerprint: Fingerprint(headers),
		SampleRows:  rows,
	}, nil
}

const (
	maxHeaderRow = 20
	previewRows  = 5
)

// HeaderRow returns the index of the record most likely to be the header:
// the widest of the first 20 records that mentions a sales keyword, else the
// widest record. Earlier records win ties. -1 when no record has 2+ fields.
func HeaderRow(records [][]string) int {
	keywordIndex, keywordCount := -1, 0
	fallbackIndex, fallbackCount := -1, 0

	for i, record := range records {
		if i > maxHeaderRow {
			break
		}
		count := 0
		for _, f := range record {
			if strings.TrimSpace(f) != "" {
				count++
			}
		}
		if count < 2 {
			continue
		}

		lower := strings.ToLower(strings.Join(record, " "))
		matched := false
		for _, kw := range headerKeywords {
			if strings.Contains(lower, kw) {
				matched = true
				break
			}
		}

		if matched && count > keywordCount {
			keywordIndex, keywordCount = i, count
		}
		if count > fallbackCount {
			fallbackIndex, fallbackCount = i, count
		}
	}

	if keywordIndex >= 0 {
		return keywordIndex
	}
	return fallbackIndex
}

// Fingerprint creates a stable hash from header names, ignoring case,
// punctuation and spacing.
func Fingerprint(headers []string) string {
	var normalized []string
	for _, h := range headers {
		clean := strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				return unicode.ToLower(r)
			}
			return -1
		}, h)
		if clean != "" {
			normalized = append(normalized, clean)
		}
	}

	hash := sha256.Sum256([]byte(strings.Join(normalized, "|")))
	return hex.EncodeToString(hash[:])
}
