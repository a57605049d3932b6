package ai

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"spendwise/internal/core"
)

var ErrNoJSON = errors.New("ai: no JSON found in model response")

// Item is one parsed expense line.
type Item struct {
	Item     string  `json:"item"`
	Amount   float64 `json:"amount"`
	Category string  `json:"category"`
}

// Receipt is the result of reading a receipt photo.
type Receipt struct {
	Date  core.Date `json:"date"`
	Items []Item    `json:"items"`
}

// ParsedExpense is the result of reading a voice note or free text.
type ParsedExpense struct {
	Transcription string `json:"transcription,omitempty"`
	Items         []Item `json:"items"`
}

type Insight struct {
	Type       string  `json:"type"`
	Message    string  `json:"message"`
	Category   string  `json:"category,omitempty"`
	Percentage float64 `json:"percentage,omitempty"`
}

// SearchResult answers a natural-language question. Matches holds the IDs
// of the transactions the model pointed at.
type SearchResult struct {
	Answer  string   `json:"answer"`
	Matches []string `json:"matches"`
}

// rawItem accepts amounts written as numbers or as strings.
type rawItem struct {
	Item     string          `json:"item"`
	Amount   json.RawMessage `json:"amount"`
	Category string          `json:"category"`
}

// cleanModelJSON strips Markdown fences and any prose around the first JSON
// value delimited by openDelim and closeDelim.
func cleanModelJSON(raw, openDelim, closeDelim string) (string, bool) {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		}
		if idx := strings.LastIndex(s, "```"); idx != -1 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}
	start := strings.Index(s, openDelim)
	end := strings.LastIndex(s, closeDelim)
	if start == -1 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

func decodeObject(raw string, v any) error {
	obj, ok := cleanModelJSON(raw, "{", "}")
	if !ok {
		return ErrNoJSON
	}
	if err := json.Unmarshal([]byte(obj), v); err != nil {
		return fmt.Errorf("unmarshal model JSON: %w", err)
	}
	return nil
}

// parseReceipt reads either {"date":..., "items":[...]} or a bare item array.
func parseReceipt(raw string, today core.Date) (Receipt, error) {
	var obj struct {
		Date  string    `json:"date"`
		Items []rawItem `json:"items"`
	}
	objErr := decodeObject(raw, &obj)
	if objErr == nil && obj.Items != nil {
		return Receipt{Date: core.ReceiptDate(obj.Date, today), Items: cleanItems(obj.Items)}, nil
	}

	arr, ok := cleanModelJSON(raw, "[", "]")
	if !ok {
		if objErr != nil {
			return Receipt{}, objErr
		}
		return Receipt{}, ErrNoJSON
	}
	var items []rawItem
	if err := json.Unmarshal([]byte(arr), &items); err != nil {
		return Receipt{}, fmt.Errorf("unmarshal model JSON: %w", err)
	}
	return Receipt{Date: today, Items: cleanItems(items)}, nil
}

func parseExpense(raw string) (ParsedExpense, error) {
	var obj struct {
		Transcription string    `json:"transcription"`
		Items         []rawItem `json:"items"`
	}
	if err := decodeObject(raw, &obj); err != nil {
		return ParsedExpense{}, err
	}
	return ParsedExpense{Transcription: obj.Transcription, Items: cleanItems(obj.Items)}, nil
}

func parseInsights(raw string) []Insight {
	var obj struct {
		Insights []Insight `json:"insights"`
	}
	if err := decodeObject(raw, &obj); err != nil {
		return []Insight{}
	}
	if obj.Insights == nil {
		return []Insight{}
	}
	return obj.Insights
}

// parseSearch maps the model's filteredTransactions entries, which may be
// IDs or positional indices, onto transaction IDs.
func parseSearch(raw string, txs []core.Transaction) (SearchResult, error) {
	var obj struct {
		Answer   string            `json:"answer"`
		Filtered []json.RawMessage `json:"filteredTransactions"`
	}
	if err := decodeObject(raw, &obj); err != nil {
		return SearchResult{}, err
	}

	known := make(map[string]bool, len(txs))
	for _, tx := range txs {
		known[tx.ID] = true
	}
	res := SearchResult{Answer: obj.Answer, Matches: []string{}}
	seen := make(map[string]bool)
	for _, entry := range obj.Filtered {
		id := ""
		var s string
		var n int
		switch {
		case json.Unmarshal(entry, &s) == nil:
			if known[s] {
				id = s
			} else if idx, err := strconv.Atoi(s); err == nil && idx >= 0 && idx < len(txs) {
				id = txs[idx].ID
			}
		case json.Unmarshal(entry, &n) == nil:
			if n >= 0 && n < len(txs) {
				id = txs[n].ID
			}
		}
		if id != "" && !seen[id] {
			seen[id] = true
			res.Matches = append(res.Matches, id)
		}
	}
	return res, nil
}

// cleanItems drops lines without a positive amount or a name and
// normalizes categories.
func cleanItems(in []rawItem) []Item {
	out := make([]Item, 0, len(in))
	for _, ri := range in {
		amount := parseRawAmount(ri.Amount)
		name := strings.TrimSpace(ri.Item)
		if amount <= 0 || name == "" {
			continue
		}
		out = append(out, Item{Item: name, Amount: amount, Category: core.NormalizeCategory(ri.Category)})
	}
	return out
}

func parseRawAmount(raw json.RawMessage) float64 {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return 0
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0
	}
	s = strings.TrimLeft(strings.TrimSpace(s), "$€£¥")
	amount, err := core.ParseAmount(s)
	if err != nil {
		return 0
	}
	return amount
}
