package validate

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jdziat/simple-durable-airdrops/pkg/core"
)

// ErrCSVHeader is returned when the CSV header lacks an address or amount column.
var ErrCSVHeader = errors.New("airdrop: csv header must contain address (or wallet) and amount columns")

// RowError is a CSV row that could not be read into a recipient.
type RowError struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// ParseCSV reads recipients from CSV with a header row. The address column may
// be named address or wallet. Rows with missing cells are reported by line
// number. Blank lines are skipped.
func ParseCSV(r io.Reader) ([]core.Recipient, []RowError, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil, ErrCSVHeader
	}
	if err != nil {
		return nil, nil, fmt.Errorf("airdrop: read csv header: %w", err)
	}

	addrCol, amountCol := -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))) {
		case "address", "wallet":
			if addrCol < 0 {
				addrCol = i
			}
		case "amount":
			amountCol = i
		}
	}
	if addrCol < 0 || amountCol < 0 {
		return nil, nil, ErrCSVHeader
	}

	recipients := []core.Recipient{}
	var rowErrs []RowError
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("airdrop: read csv: %w", err)
		}
		line, _ := reader.FieldPos(0)
		if len(record) == 1 && strings.TrimSpace(record[0]) == "" {
			continue
		}

		cell := func(i int) string {
			if i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}
		addr, amount := cell(addrCol), cell(amountCol)
		switch {
		case addr == "" && amount == "":
			rowErrs = append(rowErrs, RowError{Line: line, Reason: "missing address and amount"})
		case addr == "":
			rowErrs = append(rowErrs, RowError{Line: line, Reason: "missing address"})
		case amount == "":
			rowErrs = append(rowErrs, RowError{Line: line, Reason: "missing amount"})
		default:
			recipients = append(recipients, core.Recipient{Address: addr, Amount: amount})
		}
	}
	return recipients, rowErrs, nil
}
