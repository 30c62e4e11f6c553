// Package vcf provides VCF file parsing functionality.
package vcf

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// Parser reads variants from a VCF file.
type Parser struct {
	reader      *bufio.Reader
	file        *os.File
	gzipReader  *gzip.Reader
	lineNumber  int
	header      []string
	sampleNames []string // sample names from #CHROM header line
	infoDefs    map[string]FieldDef
	formatDefs  map[string]FieldDef
}

// gzipMagic starts every gzip and bgzip stream.
var gzipMagic = []byte{0x1f, 0x8b}

// NewParser creates a new VCF parser for the given file, or stdin for "-".
// Plain and gzipped (.vcf.gz, bgzip) input are both accepted.
func NewParser(path string) (*Parser, error) {
	if path == "-" {
		return NewParserFromReader(os.Stdin)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vcf file: %w", err)
	}

	p, err := newParserFrom(file)
	if err != nil {
		file.Close()
		return nil, err
	}
	p.file = file
	return p, nil
}

// NewParserFromReader creates a parser from an io.Reader (e.g., stdin).
// Gzipped streams are detected by their magic bytes.
func NewParserFromReader(r io.Reader) (*Parser, error) {
	return newParserFrom(r)
}

func newParserFrom(r io.Reader) (*Parser, error) {
	p := newParser()
	br := bufio.NewReader(r)

	magic, err := br.Peek(len(gzipMagic))
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("read vcf header: %w", err)
	}

	if bytes.Equal(magic, gzipMagic) {
		p.gzipReader, err = gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		p.reader = bufio.NewReader(p.gzipReader)
	} else {
		p.reader = br
	}

	if err := p.parseHeader(); err != nil {
		if p.gzipReader != nil {
			p.gzipReader.Close()
		}
		return nil, err
	}

	return p, nil
}

func newParser() *Parser {
	return &Parser{
		infoDefs:   make(map[string]FieldDef),
		formatDefs: make(map[string]FieldDef),
	}
}

// parseHeader reads and stores VCF header lines.
func (p *Parser) parseHeader() error {
	for {
		line, err := p.reader.ReadString('\n')
		if err != nil && !(err == io.EOF && line != "") {
			if err == io.EOF {
				break
			}
			return fmt.Errorf("read header: %w", err)
		}
		p.lineNumber++

		line = strings.TrimRight(line, "\r\n")

		if strings.HasPrefix(line, "##") {
			p.header = append(p.header, line)
			if def, ok := parseFieldDef(line, "##INFO=<"); ok {
				p.infoDefs[def.ID] = def
			} else if def, ok := parseFieldDef(line, "##FORMAT=<"); ok {
				p.formatDefs[def.ID] = def
			}
			continue
		}

		if strings.HasPrefix(line, "#CHROM") {
			p.header = append(p.header, line)
			// Extract sample names from columns after FORMAT (index 9+)
			fields := strings.Split(line, "\t")
			if len(fields) > 9 {
				p.sampleNames = fields[9:]
			}
			return nil
		}

		return &ParseError{
			Line:    p.lineNumber,
			Message: "expected #CHROM header line",
		}
	}

	return &ParseError{
		Line:    p.lineNumber,
		Message: "no #CHROM header line found",
	}
}

// Next reads the next variant from the VCF file.
// Returns nil, nil when there are no more variants.
func (p *Parser) Next() (*Variant, error) {
	for {
		line, err := p.reader.ReadString('\n')
		if err != nil && !(err == io.EOF && line != "") {
			if err == io.EOF {
				return nil, nil
			}
			return nil, fmt.Errorf("read variant line: %w", err)
		}
		p.lineNumber++

		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			continue
		}

		return p.parseLine(line)
	}
}

// parseLine parses a single VCF data line into a Variant.
func (p *Parser) parseLine(line string) (*Variant, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < 8 {
		return nil, &ParseError{
			Line:    p.lineNumber,
			Message: fmt.Sprintf("expected at least 8 columns, found %d", len(fields)),
		}
	}

	pos, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return nil, &ParseError{
			Line:    p.lineNumber,
			Message: fmt.Sprintf("invalid position: %s", fields[1]),
		}
	}

	v := &Variant{
		Chrom: fields[0],
		Pos:   pos,
		Ref:   fields[3],
	}

	if fields[2] != "." {
		v.ID = fields[2]
	}

	if fields[4] != "." {
		for _, alt := range strings.Split(fields[4], ",") {
			v.Alt = append(v.Alt, NewAllele(v.Ref, alt))
		}
	}

	if fields[5] != "." {
		qual, err := strconv.ParseFloat(fields[5], 64)
		if err != nil {
			return nil, &ParseError{
				Line:    p.lineNumber,
				Message: fmt.Sprintf("invalid quality: %s", fields[5]),
			}
		}
		v.Qual = &qual
	}

	switch fields[6] {
	case ".":
	case "PASS":
		v.Filter = []string{}
	default:
		v.Filter = strings.Split(fields[6], ";")
	}

	v.Info, v.InfoKeys = p.parseInfo(fields[7])

	if len(fields) > 8 {
		v.Format = fields[8]
		v.Samples = p.parseSamples(v.Format, fields[9:])
	}

	return v, nil
}

// parseInfo parses the INFO field into a map, typing values from the header.
func (p *Parser) parseInfo(info string) (map[string]any, []string) {
	result := make(map[string]any)
	if info == "." {
		return result, nil
	}

	var keys []string
	for _, kv := range strings.Split(info, ";") {
		key, raw, hasValue := strings.Cut(kv, "=")
		if key == "" {
			continue
		}
		if _, seen := result[key]; !seen {
			keys = append(keys, key)
		}
		if !hasValue {
			// Flag-type INFO field
			result[key] = true
			continue
		}
		def, declared := p.infoDefs[key]
		result[key] = parseValue(raw, def, declared)
	}

	return result, keys
}

// parseSamples builds one Call per sample column.
func (p *Parser) parseSamples(format string, columns []string) []*Call {
	keys := strings.Split(format, ":")
	calls := make([]*Call, len(columns))
	for i, col := range columns {
		name := strconv.Itoa(i)
		if i < len(p.sampleNames) {
			name = p.sampleNames[i]
		}
		raw := strings.Split(col, ":")
		values := make([]any, len(raw))
		for j, r := range raw {
			if j >= len(keys) {
				break
			}
			def, declared := p.formatDefs[keys[j]]
			values[j] = parseValue(r, def, declared)
		}
		calls[i] = NewCall(name, keys, values)
	}
	return calls
}

// Header returns the VCF header lines.
func (p *Parser) Header() []string {
	return p.header
}

// SampleNames returns sample names from the #CHROM header line.
// Returns nil if no sample columns are present.
func (p *Parser) SampleNames() []string {
	return p.sampleNames
}

// InfoDef returns the header declaration of an INFO field.
func (p *Parser) InfoDef(id string) (FieldDef, bool) {
	d, ok := p.infoDefs[id]
	return d, ok
}

// FormatDef returns the header declaration of a FORMAT field.
func (p *Parser) FormatDef(id string) (FieldDef, bool) {
	d, ok := p.formatDefs[id]
	return d, ok
}

// LineNumber returns the current line number being processed.
func (p *Parser) LineNumber() int {
	return p.lineNumber
}

// Close closes the parser and underlying file.
func (p *Parser) Close() error {
	if p.gzipReader != nil {
		p.gzipReader.Close()
	}
	if p.file != nil {
		return p.file.Close()
	}
	return nil
}

// ParseError represents an error during VCF parsing with line context.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("vcf parse error at line %d: %s", e.Line, e.Message)
}
