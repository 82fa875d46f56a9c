package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// BorrowRequest is a user's request to borrow a book. The pending list
// only ever contains requests awaiting an admin decision.
type BorrowRequest struct {
	ID               int64    `json:"id"`
	User             string   `json:"user"`
	Book             string   `json:"book"`
	BookDetail       Book     `json:"book_detail"`
	RequesterProfile *Profile `json:"requester_profile,omitempty"`
	RequestDate      string   `json:"request_date,omitempty"`
	Status           string   `json:"status,omitempty"`
}

// BookID returns the referenced book, preferring the nested detail.
func (r BorrowRequest) BookID() string {
	if r.BookDetail.BookID != "" {
		return r.BookDetail.BookID
	}
	return r.Book
}

// CreateRequest asks to borrow bookID on behalf of the token's user.
func (c *Client) CreateRequest(ctx context.Context, token, bookID string) (*BorrowRequest, error) {
	if err := requireToken(token); err != nil {
		return nil, err
	}
	body := map[string]string{"book": bookID}
	var r BorrowRequest
	if err := c.doJSON(ctx, http.MethodPost, c.url("library", "requests"), token, body, &r); err != nil {
		return nil, fmt.Errorf("request book %s: %w", bookID, err)
	}
	return &r, nil
}

// ListPendingRequests returns the requests awaiting approval (admin).
func (c *Client) ListPendingRequests(ctx context.Context, token string) ([]BorrowRequest, error) {
	if err := requireToken(token); err != nil {
		return nil, err
	}
	var out []BorrowRequest
	if err := c.doJSON(ctx, http.MethodGet, c.url("library", "admin", "requests", "pending"), token, nil, &out); err != nil {
		return nil, fmt.Errorf("list pending requests: %w", err)
	}
	if out == nil {
		out = []BorrowRequest{}
	}
	return out, nil
}

// AcceptRequest approves a pending request.
func (c *Client) AcceptRequest(ctx context.Context, token string, requestID int64) (*BorrowRequest, error) {
	if err := requireToken(token); err != nil {
		return nil, err
	}
	u := c.url("library", "requests", url.PathEscape(strconv.FormatInt(requestID, 10)), "accept")
	var r BorrowRequest
	if err := c.doJSON(ctx, http.MethodPatch, u, token, struct{}{}, &r); err != nil {
		return nil, fmt.Errorf("accept request %d: %w", requestID, err)
	}
	return &r, nil
}
