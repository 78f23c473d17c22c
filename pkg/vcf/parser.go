package vcf

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// minDataFields is the number of mandatory VCF columns:
// CHROM POS ID REF ALT QUAL FILTER INFO.
const minDataFields = 8

// sampleFieldIndex is the column of the first sample, after FORMAT.
const sampleFieldIndex = 9

// maxLineBytes bounds a single line. Panel VCFs are narrow; anything past
// this is treated as a malformed line rather than growing without limit.
const maxLineBytes = 1 << 20

// Stats summarizes what the parser did with the data lines of a file.
// Meta lines, the column header, and blank lines are not counted.
type Stats struct {
	TotalDataLines int `json:"total_data_lines"`
	ParsedLines    int `json:"parsed_lines"`
	SkippedLines   int `json:"skipped_lines"`
}

// Result holds the parsed records alongside the line accounting.
type Result struct {
	Records []Record `json:"records"`
	Stats   Stats    `json:"stats"`
}

// Parser reads VCF content line by line. A malformed data line is skipped
// and counted, never fatal: recovery is per line, and the caller decides
// what an empty result means.
type Parser struct{}

// NewParser creates a new VCF parser.
func NewParser() *Parser {
	return &Parser{}
}

// ParseString parses VCF content held in memory.
func (p *Parser) ParseString(content string) (*Result, error) {
	return p.Parse(strings.NewReader(content))
}

// Parse reads VCF content from r. The only error it returns is a read
// failure; content-level problems are reflected in Result.Stats.
func (p *Parser) Parse(r io.Reader) (*Result, error) {
	result := &Result{Records: []Record{}}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")

		if strings.TrimSpace(line) == "" {
			continue
		}

		// Meta lines (##...) and the #CHROM column header carry no variant
		// data and are not counted against parse success.
		if strings.HasPrefix(line, "#") {
			continue
		}

		result.Stats.TotalDataLines++

		rec, ok := p.parseDataLine(line, lineNo)
		if !ok {
			result.Stats.SkippedLines++
			continue
		}

		result.Stats.ParsedLines++
		result.Records = append(result.Records, rec)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading vcf content: %w", err)
	}

	return result, nil
}

// parseDataLine converts one tab-separated data line into a Record. The
// second return value is false when the line is malformed.
func (p *Parser) parseDataLine(line string, lineNo int) (Record, bool) {
	fields := strings.Split(line, "\t")
	if len(fields) < minDataFields {
		return Record{}, false
	}

	pos, err := strconv.ParseInt(strings.TrimSpace(fields[1]), 10, 64)
	if err != nil || pos < 0 {
		return Record{}, false
	}

	rec := Record{
		Chrom:  strings.TrimSpace(fields[0]),
		Pos:    pos,
		ID:     strings.TrimSpace(fields[2]),
		Ref:    strings.TrimSpace(fields[3]),
		Alt:    strings.TrimSpace(fields[4]),
		Qual:   strings.TrimSpace(fields[5]),
		Filter: strings.TrimSpace(fields[6]),
		Info:   parseInfo(fields[7]),
		Line:   lineNo,
	}

	if rec.Chrom == "" {
		return Record{}, false
	}

	if len(fields) > sampleFieldIndex {
		rec.Genotype = genotypeToken(fields[sampleFieldIndex])
	}

	return rec, true
}

// parseInfo splits the INFO column into key=value pairs. Bare flag keys
// are kept with an empty value; empty segments are ignored.
func parseInfo(info string) map[string]string {
	tags := make(map[string]string)

	for _, part := range strings.Split(info, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		if key, value, found := strings.Cut(part, "="); found {
			if key != "" {
				tags[key] = value
			}
		} else {
			tags[part] = ""
		}
	}

	return tags
}

// genotypeToken extracts the GT value from a sample column. GT is always
// the first colon-separated entry when present.
func genotypeToken(sample string) string {
	token, _, _ := strings.Cut(strings.TrimSpace(sample), ":")
	return token
}
