// Package export encodes record sets as downloadable files.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mssola/useragent"

	"github.com/studentform/studentform/backend/go-services/internal/records"
)

type Format string

const (
	FormatCSV   Format = "csv"
	FormatJSON  Format = "json"
	FormatExcel Format = "excel"
)

// ParseFormat accepts csv, json or excel (case-insensitive); empty means csv.
func ParseFormat(v string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(v))); f {
	case "":
		return FormatCSV, nil
	case FormatCSV, FormatJSON, FormatExcel:
		return f, nil
	}
	return "", fmt.Errorf("unsupported export format %q", v)
}

var csvHeader = []string{
	"ID", "Name", "Father's Name", "Date of Birth", "Mobile", "National ID",
	"Submitted At", "IP", "Browser", "Platform",
}

// Write encodes recs in format f. Excel is served as plain CSV.
func Write(w io.Writer, f Format, recs []records.Record) (contentType, ext string, err error) {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if recs == nil {
			recs = []records.Record{}
		}
		return "application/json", "json", enc.Encode(recs)
	case FormatCSV, FormatExcel:
		return "text/csv; charset=utf-8", "csv", writeCSV(w, recs)
	}
	return "", "", fmt.Errorf("unsupported export format %q", f)
}

func writeCSV(w io.Writer, recs []records.Record) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range recs {
		browser, platform := describeAgent(r.UserAgent)
		row := []string{
			r.ID, r.Name, r.Father, r.DOB, r.Mobile, r.NationalID,
			r.Timestamp.UTC().Format(time.RFC3339), r.IP, browser, platform,
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// describeAgent returns "Name Version" and the platform for a User-Agent header.
func describeAgent(ua string) (browser, platform string) {
	if ua == "" {
		return "", ""
	}
	parsed := useragent.New(ua)
	if parsed.Bot() {
		name, _ := parsed.Browser()
		return name, "bot"
	}
	name, version := parsed.Browser()
	return strings.TrimSpace(name + " " + version), parsed.Platform()
}

// Filename is the attachment name for an export created at now.
func Filename(now time.Time, ext string) string {
	return "student-responses-" + now.UTC().Format("2006-01-02") + "." + ext
}
