package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"spendwise/internal/core"
)

const (
	insightSampleSize = 50
	searchSampleSize  = 100
)

var categoryLine = "Categories: " + strings.Join(core.Categories, ", ") + "."

const itemSchema = `{
  "item": "item name",
  "amount": 0.00,
  "category": "category name"
}`

func receiptPrompt() string {
	return `Analyze this receipt image and extract ALL purchased items. Pay close attention to quantities and compute amounts correctly.

Rules:
1. If an item appears several times (e.g. "2x Apple" or "Apple x2"), emit one entry per unit at the unit price.
2. If a quantity is shown (e.g. "2 @ 1.50"), amount = quantity x unit price.
3. List every item, even repeated ones.
4. Only include items with positive amounts. Skip discounts, refunds and zero lines.

Return a JSON object with this exact structure:
{
  "date": "YYYY-MM-DD",
  "items": [` + itemSchema + `]
}

Date rules:
- Use the purchase date printed on the receipt.
- If no date is printed or it is unreadable, use today's date.
- Never invent a date far in the past or the future.

` + categoryLine + ` Use "Other" when unsure.
Return ONLY raw JSON, without Markdown code fences.`
}

func audioPrompt() string {
	return `Listen to this recording of someone describing expenses. Transcribe what they said and extract every transaction.

Return JSON with this structure:
{
  "transcription": "exact transcription of what was said",
  "items": [` + itemSchema + `]
}

` + categoryLine + `

Rules:
- Extract every item mentioned.
- If quantities are mentioned (e.g. "2 bananas"), emit one entry per unit.
- Be accurate with amounts and names.
Return ONLY raw JSON, without Markdown code fences.`
}

func textPrompt(input string) string {
	return fmt.Sprintf(`Parse this expense text and extract transaction information. Return JSON with this structure:
{
  "items": [%s]
}

%s

Text: %q

If several items are mentioned, extract all of them.
Return ONLY raw JSON, without Markdown code fences.`, itemSchema, categoryLine, input)
}

// transactionView is the compact shape sent to the model.
type transactionView struct {
	ID       string  `json:"id"`
	Item     string  `json:"item"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
	Category string  `json:"category"`
	Date     string  `json:"date"`
}

func transactionsJSON(txs []core.Transaction, limit int) string {
	if len(txs) > limit {
		txs = txs[:limit]
	}
	views := make([]transactionView, len(txs))
	for i, tx := range txs {
		views[i] = transactionView{
			ID:       tx.ID,
			Item:     tx.Item,
			Amount:   tx.Amount,
			Currency: tx.Currency,
			Category: tx.Category,
			Date:     tx.Date.String(),
		}
	}
	b, err := json.Marshal(views)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func insightsPrompt(txs []core.Transaction) string {
	return `Analyze these transactions and provide insights. Return JSON with this structure:
{
  "insights": [
    {
      "type": "spending_increase" | "spending_decrease" | "new_subscription" | "budget_warning",
      "message": "human readable insight",
      "category": "category name if applicable",
      "percentage": 0
    }
  ]
}

Transactions: ` + transactionsJSON(txs, insightSampleSize) + `

Provide the 2-3 most relevant insights. Return ONLY raw JSON.`
}

func searchPrompt(query string, txs []core.Transaction) string {
	return fmt.Sprintf(`Answer this question about the transactions: %q

Transactions: %s

Return JSON with this structure:
{
  "answer": "direct answer to the question",
  "filteredTransactions": ["ids of the relevant transactions"]
}
Return ONLY raw JSON.`, query, transactionsJSON(txs, searchSampleSize))
}
