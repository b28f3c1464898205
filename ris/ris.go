// Package ris reads bibliographic records in the RIS tagged format.
//
// A record starts with a TY line and ends with an ER line. Inside a record
// every other line is either a "XX  - value" tag line or a continuation of the
// previous value. Untagged lines between records, such as the Provider and
// Database header some vendors write, are skipped.
package ris

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"retraction-check/models"
)

var (
	// ErrMalformed is wrapped by every ParseError.
	ErrMalformed = errors.New("malformed RIS input")
	// ErrNoRecords is returned for input without a single complete record.
	ErrNoRecords = errors.New("no RIS records found")
)

var tagLine = regexp.MustCompile(`^([A-Z][A-Z0-9])\s{1,2}-(?:\s(.*))?$`)

const maxLineBytes = 4 * 1024 * 1024

// ParseError reports the offending line of a malformed file.
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("ris: line %d: %s", e.Line, e.Msg)
}

func (e *ParseError) Unwrap() error { return ErrMalformed }

// Record is one parsed entry, tag -> values in file order.
type Record struct {
	Fields map[string][]string
	last   string
}

// Get returns the first value of tag, or "".
func (r Record) Get(tag string) string {
	if v := r.Fields[tag]; len(v) > 0 {
		return v[0]
	}
	return ""
}

// First returns the first non-empty value among tags.
func (r Record) First(tags ...string) string {
	for _, tag := range tags {
		if v := strings.TrimSpace(r.Get(tag)); v != "" {
			return v
		}
	}
	return ""
}

func (r *Record) add(tag, value string) {
	r.Fields[tag] = append(r.Fields[tag], value)
	r.last = tag
}

func (r *Record) appendContinuation(text string) {
	values := r.Fields[r.last]
	if len(values) == 0 {
		return
	}
	values[len(values)-1] = strings.TrimSpace(values[len(values)-1] + " " + text)
}

// Parse reads all records from r. A file that cannot be parsed completely
// yields no records at all.
func Parse(r io.Reader) ([]Record, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var (
		records []Record
		current *Record
		lineNo  int
	)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if lineNo == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		m := tagLine.FindStringSubmatch(line)
		if m == nil {
			if current == nil {
				continue
			}
			current.appendContinuation(strings.TrimSpace(line))
			continue
		}

		tag, value := m[1], strings.TrimSpace(m[2])
		switch {
		case tag == "TY":
			if current != nil {
				return nil, &ParseError{Line: lineNo, Msg: "TY before ER of the previous record"}
			}
			current = &Record{Fields: map[string][]string{}}
			current.add(tag, value)
		case tag == "ER":
			if current == nil {
				return nil, &ParseError{Line: lineNo, Msg: "ER without matching TY"}
			}
			records = append(records, *current)
			current = nil
		case current == nil:
			return nil, &ParseError{Line: lineNo, Msg: fmt.Sprintf("tag %s outside of a record", tag)}
		default:
			current.add(tag, value)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("ris: read input: %w", err)
	}
	if current != nil {
		return nil, &ParseError{Line: lineNo, Msg: "record not terminated by ER"}
	}
	if len(records) == 0 {
		return nil, ErrNoRecords
	}
	return records, nil
}

// Candidate maps the record onto a candidate. Normalized fields stay empty.
func (r Record) Candidate(index int) models.CandidateRecord {
	authors := append([]string{}, r.Fields["AU"]...)
	authors = append(authors, r.Fields["A1"]...)

	year := r.First("PY", "Y1")
	if i := strings.IndexByte(year, '/'); i >= 0 {
		year = year[:i]
	}

	fields := make(map[string][]string, len(r.Fields))
	for k, v := range r.Fields {
		fields[k] = append([]string(nil), v...)
	}

	return models.CandidateRecord{
		Index:   index,
		Type:    r.Get("TY"),
		DOI:     r.First("DO"),
		Title:   r.First("T1", "TI"),
		Authors: authors,
		Year:    year,
		Journal: r.First("JO", "JF", "T2", "JA"),
		Fields:  fields,
	}
}

// ReadCandidates parses r and maps every record onto a candidate.
func ReadCandidates(r io.Reader) ([]models.CandidateRecord, error) {
	records, err := Parse(r)
	if err != nil {
		return nil, err
	}
	out := make([]models.CandidateRecord, len(records))
	for i, rec := range records {
		out[i] = rec.Candidate(i)
	}
	return out, nil
}
