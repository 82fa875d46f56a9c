package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// BorrowingRecord tracks one borrowed copy until it is returned.
type BorrowingRecord struct {
	ID         int64   `json:"id"`
	User       string  `json:"user"`
	Book       string  `json:"book"`
	BookTitle  string  `json:"book_title"`
	BorrowDate string  `json:"borrow_date"`
	ReturnDate *string `json:"return_date"`
	IsReturned bool    `json:"is_returned"`
}

// RecordList is the admin borrowing-records response.
type RecordList struct {
	Records []BorrowingRecord `json:"borrowingRecords"`
	Total   int               `json:"totalBorrowedRecords"`
}

// BorrowBook creates a borrowing record for bookID. The backend decrements
// availability and rejects the call when no copy is left.
func (c *Client) BorrowBook(ctx context.Context, token, bookID string) (*BorrowingRecord, error) {
	if err := requireToken(token); err != nil {
		return nil, err
	}
	u := c.url("library", "books", url.PathEscape(bookID), "borrow")
	var raw json.RawMessage
	if err := c.doJSON(ctx, http.MethodPost, u, token, struct{}{}, &raw); err != nil {
		return nil, fmt.Errorf("borrow book %s: %w", bookID, err)
	}

	// The record comes either bare or wrapped with a message.
	var wrapped struct {
		Record *BorrowingRecord `json:"borrowing_record"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Record != nil {
		return wrapped.Record, nil
	}
	var rec BorrowingRecord
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("decoding borrowing record: %w", err)
		}
	}
	return &rec, nil
}

// ListBorrowingRecords returns every record (admin).
func (c *Client) ListBorrowingRecords(ctx context.Context, token string) (*RecordList, error) {
	if err := requireToken(token); err != nil {
		return nil, err
	}
	var list RecordList
	if err := c.doJSON(ctx, http.MethodGet, c.url("library", "borrowing-records"), token, nil, &list); err != nil {
		return nil, fmt.Errorf("list borrowing records: %w", err)
	}
	if list.Records == nil {
		list.Records = []BorrowingRecord{}
	}
	return &list, nil
}

// ListMyBorrowingRecords returns the token user's records.
func (c *Client) ListMyBorrowingRecords(ctx context.Context, token string) ([]BorrowingRecord, error) {
	if err := requireToken(token); err != nil {
		return nil, err
	}
	var out []BorrowingRecord
	if err := c.doJSON(ctx, http.MethodGet, c.url("library", "my-borrowing-records"), token, nil, &out); err != nil {
		return nil, fmt.Errorf("list my borrowing records: %w", err)
	}
	if out == nil {
		out = []BorrowingRecord{}
	}
	return out, nil
}

// MarkReturned closes a borrowing record.
func (c *Client) MarkReturned(ctx context.Context, token string, recordID int64) (*BorrowingRecord, error) {
	if err := requireToken(token); err != nil {
		return nil, err
	}
	u := c.url("library", "borrowing-records", url.PathEscape(strconv.FormatInt(recordID, 10)), "return")
	var rec BorrowingRecord
	if err := c.doJSON(ctx, http.MethodPatch, u, token, struct{}{}, &rec); err != nil {
		return nil, fmt.Errorf("mark record %d returned: %w", recordID, err)
	}
	return &rec, nil
}
