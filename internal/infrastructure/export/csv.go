// Package export renders orders as CSV documents.
package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/storefront/backend/internal/domain/order"
)

// Encoding selects the byte encoding of a CSV document
type Encoding string

const (
	EncodingUTF8        Encoding = "utf-8"
	EncodingWindows1250 Encoding = "windows-1250"
)

// ErrUnsupportedEncoding is returned for an unknown encoding name
var ErrUnsupportedEncoding = errors.New("unsupported csv encoding")

// dateLayout matches the millisecond ISO-8601 form stored in the order file
const dateLayout = "2006-01-02T15:04:05.000Z07:00"

var listHeader = []string{"OrderID", "OrderWorth", "ProductsCount", "ProductIDs", "ProductQuantities", "Date"}

// ParseEncoding maps a query value to an Encoding. Empty means UTF-8.
func ParseEncoding(name string) (Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		return EncodingUTF8, nil
	case "windows-1250", "cp1250":
		return EncodingWindows1250, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedEncoding, name)
	}
}

// ContentType returns the HTTP content type for the encoding
func (e Encoding) ContentType() string {
	return "text/csv; charset=" + string(e)
}

// Orders renders the order list document. An empty slice yields the header only.
func Orders(orders []order.Order, enc Encoding) ([]byte, error) {
	return render(enc, func(w *csv.Writer) error {
		if err := w.Write(listHeader); err != nil {
			return err
		}
		for _, o := range orders {
			ids := make([]string, len(o.Products))
			qtys := make([]string, len(o.Products))
			for i, p := range o.Products {
				ids[i] = p.ProductID
				qtys[i] = strconv.Itoa(p.Quantity)
			}
			record := []string{
				o.OrderID,
				formatWorth(o.OrderWorth),
				strconv.Itoa(len(o.Products)),
				strings.Join(ids, ";"),
				strings.Join(qtys, ";"),
				formatDate(o.Date),
			}
			if err := w.Write(record); err != nil {
				return fmt.Errorf("write order %s: %w", o.OrderID, err)
			}
		}
		return nil
	})
}

// OrderDetail renders a single order: a short preamble followed by the
// product table.
func OrderDetail(o order.Order, enc Encoding) ([]byte, error) {
	return render(enc, func(w *csv.Writer) error {
		rows := [][]string{
			{"Order", o.OrderID},
			{"Order worth", formatWorth(o.OrderWorth)},
			{"Updated at", formatDate(o.Date)},
			{},
			{"ProductID", "Quantity"},
		}
		for _, p := range o.Products {
			rows = append(rows, []string{p.ProductID, strconv.Itoa(p.Quantity)})
		}
		return w.WriteAll(rows)
	})
}

// DetailFilename is the attachment name for a single order document
func DetailFilename(orderID string) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, orderID)
	return "order-" + safe + ".csv"
}

func render(enc Encoding, fill func(w *csv.Writer) error) ([]byte, error) {
	var buf bytes.Buffer
	out, closer, err := encoder(&buf, enc)
	if err != nil {
		return nil, err
	}

	w := csv.NewWriter(out)
	if err := fill(w); err != nil {
		return nil, err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	if closer != nil {
		if err := closer.Close(); err != nil {
			return nil, fmt.Errorf("encode csv as %s: %w", enc, err)
		}
	}
	return buf.Bytes(), nil
}

// encoder wraps dst for the target encoding. Characters outside the code page
// are replaced rather than failing the whole document.
func encoder(dst io.Writer, enc Encoding) (io.Writer, io.Closer, error) {
	switch enc {
	case EncodingUTF8, "":
		return dst, nil, nil
	case EncodingWindows1250:
		tw := transform.NewWriter(dst, encoding.ReplaceUnsupported(charmap.Windows1250.NewEncoder()))
		return tw, tw, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnsupportedEncoding, enc)
	}
}

func formatWorth(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateLayout)
}
