package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/ideamans/go-sheetdb"
	"gopkg.in/yaml.v3"
)

// printer writes command results in the configured format
type printer struct {
	w      io.Writer
	format string
}

func newPrinter(w io.Writer, format string) (*printer, error) {
	switch format {
	case "json", "jsonl", "yaml":
		return &printer{w: w, format: format}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q (valid: json, jsonl, yaml)", format)
	}
}

// print writes one value
func (p *printer) print(v interface{}) error {
	switch p.format {
	case "yaml":
		enc := yaml.NewEncoder(p.w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case "jsonl":
		return json.NewEncoder(p.w).Encode(v)
	default:
		enc := json.NewEncoder(p.w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
}

// records writes a record list; jsonl writes one record per line
func (p *printer) records(records []sheetdb.Record) error {
	if p.format == "jsonl" {
		for _, r := range records {
			if err := p.print(r.Map()); err != nil {
				return err
			}
		}
		return nil
	}
	return p.print(maps(records))
}

func maps(records []sheetdb.Record) []map[string]interface{} {
	out := make([]map[string]interface{}, len(records))
	for i, r := range records {
		out[i] = r.Map()
	}
	return out
}
