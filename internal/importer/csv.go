package importer

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ristrutturami/backend/internal/models"
)

var ErrUnsupportedSource = errors.New("only csv pricelists can be imported")

// ValidateSource accepts the declared fonte and the uploaded file name.
func ValidateSource(fonte, filename string) error {
	if strings.ToLower(strings.TrimSpace(fonte)) != models.SourceCSV {
		return fmt.Errorf("%w: fonte %q", ErrUnsupportedSource, fonte)
	}
	if filename != "" && strings.ToLower(filepath.Ext(filename)) != ".csv" {
		return fmt.Errorf("%w: file %q", ErrUnsupportedSource, filename)
	}
	return nil
}

func ParseFileHeader(file *multipart.FileHeader) ([]models.PriceItem, []string) {
	f, err := file.Open()
	if err != nil {
		return nil, []string{err.Error()}
	}
	defer f.Close()
	return ParsePricelistCSV(f)
}

// ParsePricelistCSV reads a pricelist export. Both comma and semicolon
// separated files are accepted; the separator is taken from the header line.
// Rows with errors are reported and left out.
func ParsePricelistCSV(r io.Reader) ([]models.PriceItem, []string) {
	br := bufio.NewReader(r)
	reader := csv.NewReader(br)
	reader.Comma = sniffSeparator(br)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err != nil {
		return nil, []string{"failed to read header"}
	}
	index := headerIndex(headers)
	if _, ok := lookup(index, codeHeaders...); !ok {
		return nil, []string{"missing item_code column"}
	}
	if _, ok := lookup(index, priceHeaders...); !ok {
		return nil, []string{"missing base_price_eur column"}
	}

	var errs []string
	var out []models.PriceItem
	seen := map[string]int{}

	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			errs = append(errs, err.Error())
			continue
		}
		line, _ := reader.FieldPos(0)
		if blankRecord(rec) {
			continue
		}

		code := getFieldAny(rec, index, codeHeaders...)
		if code == "" {
			errs = append(errs, fmt.Sprintf("line %d: item_code required", line))
			continue
		}
		key := strings.ToLower(code)
		if first, dup := seen[key]; dup {
			errs = append(errs, fmt.Sprintf("line %d: duplicate item_code %s (first on line %d)", line, code, first))
			continue
		}

		price, err := ParsePrice(getFieldAny(rec, index, priceHeaders...))
		if err != nil {
			errs = append(errs, fmt.Sprintf("line %d: %s: %v", line, code, err))
			continue
		}

		priority := 0
		if raw := getFieldAny(rec, index, "priority", "priorita", "priorità"); raw != "" {
			priority, err = strconv.Atoi(raw)
			if err != nil {
				errs = append(errs, fmt.Sprintf("line %d: %s: invalid priority %q", line, code, raw))
				continue
			}
		}

		seen[key] = line
		out = append(out, models.PriceItem{
			ItemCode:     code,
			Category:     getFieldAny(rec, index, "category", "categoria"),
			Unit:         getFieldAny(rec, index, "unit", "unita", "unità", "um", "u.m."),
			BasePriceEUR: price,
			Description:  getFieldAny(rec, index, "description", "descrizione"),
			Priority:     priority,
		})
	}
	return out, errs
}

var (
	codeHeaders  = []string{"item_code", "codice", "code"}
	priceHeaders = []string{"base_price_eur", "prezzo", "price", "prezzo_eur"}
)

// thousandsOnly matches integers grouped with dots, e.g. "1.200" or "12.500.000".
var thousandsOnly = regexp.MustCompile(`^\d{1,3}(\.\d{3})+$`)

// ParsePrice reads amounts like "45.50", "45,50", "1.234,56", "1.200" or "€ 12".
// Dots followed by groups of exactly three digits are thousands separators.
func ParsePrice(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "€")
	s = strings.TrimSuffix(s, "€")
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	if s == "" {
		return decimal.Decimal{}, errors.New("price required")
	}
	switch {
	case strings.Contains(s, ","):
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	case thousandsOnly.MatchString(s):
		s = strings.ReplaceAll(s, ".", "")
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid price %q", raw)
	}
	if v.IsNegative() {
		return decimal.Decimal{}, fmt.Errorf("negative price %q", raw)
	}
	return v, nil
}

func sniffSeparator(br *bufio.Reader) rune {
	peek, _ := br.Peek(4096)
	if i := bytes.IndexByte(peek, '\n'); i >= 0 {
		peek = peek[:i]
	}
	if bytes.Count(peek, []byte{';'}) > bytes.Count(peek, []byte{','}) {
		return ';'
	}
	return ','
}

func blankRecord(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func headerIndex(headers []string) map[string]int {
	idx := map[string]int{}
	for i, h := range headers {
		idx[normalizeHeader(h)] = i
	}
	return idx
}

func lookup(idx map[string]int, names ...string) (int, bool) {
	for _, name := range names {
		if pos, ok := idx[normalizeHeader(name)]; ok {
			return pos, true
		}
	}
	return 0, false
}

func getField(rec []string, idx map[string]int, name string) string {
	pos, ok := idx[name]
	if !ok || pos >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[pos])
}

func getFieldAny(rec []string, idx map[string]int, names ...string) string {
	for _, name := range names {
		if v := getField(rec, idx, normalizeHeader(name)); v != "" {
			return v
		}
	}
	return ""
}

func normalizeHeader(h string) string {
	h = strings.ReplaceAll(h, "\ufeff", "")
	return strings.ToLower(strings.TrimSpace(h))
}
