// Package twinfield serializes journal entries into the Twinfield
// transaction-import XML format.
package twinfield

import (
	"encoding/xml"
	"fmt"

	"github.com/ibeo-nl/tebi-books/journal"
)

const headerDateLayout = "20060102"

type transactionsDoc struct {
	XMLName      xml.Name      `xml:"transactions"`
	Transactions []transaction `xml:"transaction"`
}

type transaction struct {
	Destiny        string `xml:"destiny,attr"`
	AutoBalanceVAT string `xml:"autobalancevat,attr"`
	RaiseWarning   string `xml:"raisewarning,attr"`
	Header         header `xml:"header"`
	Lines          lines  `xml:"lines"`
}

type header struct {
	Office   string `xml:"office"`
	Code     string `xml:"code"`
	Date     string `xml:"date"`
	Currency string `xml:"currency"`
}

type lines struct {
	Lines []line `xml:"line"`
}

// Optional elements use omitempty: Twinfield treats an empty <vatcode>
// differently from an absent one, so absent fields must stay absent.
type line struct {
	Type        string `xml:"type,attr"`
	Dim1        string `xml:"dim1"`
	Dim2        string `xml:"dim2,omitempty"`
	DebitCredit string `xml:"debitcredit"`
	Value       string `xml:"value"`
	VATCode     string `xml:"vatcode,omitempty"`
	VATValue    string `xml:"vatvalue,omitempty"`
	Description string `xml:"description"`
}

// Marshal renders one <transaction> per entry under a <transactions>
// root, preceded by the XML declaration. Output is deterministic for
// identical input; downstream systems diff re-imports.
func Marshal(entries []journal.Entry, destiny string) ([]byte, error) {
	if destiny == "" {
		destiny = "concept"
	}

	doc := transactionsDoc{}
	for _, entry := range entries {
		tx := transaction{
			Destiny:        destiny,
			AutoBalanceVAT: "true",
			RaiseWarning:   "false",
			Header: header{
				Office:   entry.Office,
				Code:     entry.JournalCode,
				Date:     entry.Date.Format(headerDateLayout),
				Currency: entry.Currency,
			},
		}
		for _, l := range entry.Lines {
			el := line{
				Type:        "detail",
				Dim1:        l.LedgerCode,
				Dim2:        l.CostCenter,
				DebitCredit: string(l.Polarity),
				Value:       l.NetValue.StringFixed(2),
				Description: l.Description,
			}
			if l.VATCode != "" {
				el.VATCode = l.VATCode
				if l.VATValue != nil {
					el.VATValue = l.VATValue.StringFixed(2)
				}
			}
			tx.Lines.Lines = append(tx.Lines.Lines, el)
		}
		doc.Transactions = append(doc.Transactions, tx)
	}

	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("twinfield: marshal transactions: %w", err)
	}
	return append([]byte(xml.Header), body...), nil
}
