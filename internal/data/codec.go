package data

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/encoding"
)

// Text map layout:
//
//	name=<string>
//	width=<int>
//	height=<int>
//	data=
//	<height rows of width comma-separated tile codes>
const (
	keyName   = "name"
	keyWidth  = "width"
	keyHeight = "height"
	keyData   = "data"
)

var errNoHeader = errors.New("missing map header")

// CodecOptions controls how the name= line is transcoded.
// A nil Charset means the name is stored as UTF-8.
type CodecOptions struct {
	Charset encoding.Encoding
}

// Encode writes m in the text map format.
func Encode(w io.Writer, m *GridMap, opt CodecOptions) error {
	name := m.Name
	if opt.Charset != nil {
		enc, err := opt.Charset.NewEncoder().String(name)
		if err != nil {
			return fmt.Errorf("encode map name: %w", err)
		}
		name = enc
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%s=%s\n%s=%d\n%s=%d\n%s=\n", keyName, name, keyWidth, m.Width, keyHeight, m.Height, keyData)

	row := make([]byte, 0, int(m.Width)*2)
	for y := int32(0); y < m.Height; y++ {
		row = row[:0]
		for x := int32(0); x < m.Width; x++ {
			if x > 0 {
				row = append(row, ',')
			}
			row = strconv.AppendInt(row, int64(m.GetUnchecked(x, y)), 10)
		}
		row = append(row, '\n')
		if _, err := bw.Write(row); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Decode reads a map in the text format. Short rows, missing rows, empty
// values and trailing commas are tolerated: unspecified cells stay
// TileEmpty and unknown codes decode as TileEmpty. A missing header,
// non-positive dimensions or more than MaxCells cells is an error.
func Decode(r io.Reader, opt CodecOptions) (*GridMap, error) {
	scanner := bufio.NewScanner(r)
	// Rows of wide maps exceed bufio's default 64KB token limit.
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var (
		name          string
		width, height int64
		sawData       bool
	)
	for !sawData && scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("bad header line %q", line)
		}
		var err error
		switch strings.TrimSpace(key) {
		case keyName:
			name = val
		case keyWidth:
			width, err = strconv.ParseInt(strings.TrimSpace(val), 10, 32)
		case keyHeight:
			height, err = strconv.ParseInt(strings.TrimSpace(val), 10, 32)
		case keyData:
			sawData = true
		}
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", key, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if !sawData {
		return nil, errNoHeader
	}
	if err := CheckSize(width, height); err != nil {
		return nil, err
	}

	if opt.Charset != nil {
		dec, err := opt.Charset.NewDecoder().String(name)
		if err != nil {
			return nil, fmt.Errorf("decode map name: %w", err)
		}
		name = dec
	}

	m := NewGridMap(name, int32(width), int32(height))
	y := int32(0)
	for y < m.Height && scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if len(line) == 0 {
			continue
		}
		toks := strings.Split(line, ",")
		if len(toks) > 1 && strings.TrimSpace(toks[len(toks)-1]) == "" {
			toks = toks[:len(toks)-1] // trailing comma
		}
		x := int32(0)
		for _, tok := range toks {
			if x >= m.Width {
				break
			}
			tok = strings.TrimSpace(tok)
			if tok == "" {
				x++ // empty cell keeps its column
				continue
			}
			val, err := strconv.ParseInt(tok, 10, 16)
			kind := TileKind(val)
			if err != nil || val < 0 || !kind.Valid() {
				kind = TileEmpty
			}
			m.Set(x, y, kind)
			x++
		}
		y++
	}
	return m, scanner.Err()
}

// SaveGridFile writes m to path in the text format.
func SaveGridFile(path string, m *GridMap, opt CodecOptions) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create map file %s: %w", path, err)
	}
	if err := Encode(f, m, opt); err != nil {
		f.Close()
		return fmt.Errorf("write map file %s: %w", path, err)
	}
	return f.Close()
}

// LoadGridFile reads a text map from path. A nil map with a non-nil error
// means the file is missing or malformed; the caller picks the fallback.
func LoadGridFile(path string, opt CodecOptions) (*GridMap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open map file %s: %w", path, err)
	}
	defer f.Close()

	m, err := Decode(f, opt)
	if err != nil {
		return nil, fmt.Errorf("read map file %s: %w", path, err)
	}
	return m, nil
}
