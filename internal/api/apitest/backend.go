// Package apitest provides an in-memory library backend for tests.
package apitest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/blackwell-systems/libctl/internal/api"
	"github.com/julienschmidt/httprouter"
)

// Route names used by FailRoute, DelayRoute and Calls.
const (
	RouteListBooks     = "list-books"
	RouteGetBook       = "get-book"
	RouteCreateBook    = "create-book"
	RouteUpdateBook    = "update-book"
	RouteDeleteBook    = "delete-book"
	RouteCreateRequest = "create-request"
	RoutePending       = "pending"
	RouteAccept        = "accept"
	RouteBorrow        = "borrow"
	RouteRecords       = "records"
	RouteMyRecords     = "my-records"
	RouteReturn        = "return"
	RouteProfile       = "profile"
	RouteUpdateProfile = "update-profile"
	RouteUsers         = "users"
	RouteLogin         = "login"
)

// Backend is a fake library service. Exported fields may be set before the
// first request; afterwards use the methods, which lock.
type Backend struct {
	Token     string
	Passwords map[string]string
	Books     []api.Book
	Pending   []api.BorrowRequest
	Records   []api.BorrowingRecord
	Profile   api.Profile
	Users     []api.Profile

	mu            sync.Mutex
	fail          map[string]int
	delay         map[string]time.Duration
	calls         map[string]int
	lastProfile   map[string]interface{}
	lastMultipart map[string]string
	nextRequestID int64
	nextRecordID  int64
	srv           *httptest.Server
}

// New starts a Backend that is shut down when the test ends.
func New(t testing.TB) *Backend {
	t.Helper()
	b := &Backend{
		Token:         "secret-token",
		Passwords:     map[string]string{"alice": "wonderland"},
		Profile:       api.Profile{ID: 7, Username: "alice", Email: "alice@example.com"},
		fail:          map[string]int{},
		delay:         map[string]time.Duration{},
		calls:         map[string]int{},
		nextRequestID: 100,
		nextRecordID:  500,
	}
	b.srv = httptest.NewServer(b.router())
	t.Cleanup(b.srv.Close)
	return b
}

// URL returns the API root to hand to api.New.
func (b *Backend) URL() string {
	return b.srv.URL + "/api"
}

// FailRoute makes every later call to route answer with status.
func (b *Backend) FailRoute(route string, status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fail[route] = status
}

// DelayRoute makes route sleep before answering.
func (b *Backend) DelayRoute(route string, d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.delay[route] = d
}

// Calls returns how many requests reached route.
func (b *Backend) Calls(route string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[route]
}

// TotalCalls returns how many requests reached any route.
func (b *Backend) TotalCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.calls {
		n += c
	}
	return n
}

// LastProfilePayload returns the body of the last profile update.
func (b *Backend) LastProfilePayload() map[string]interface{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastProfile
}

// LastMultipart returns the form fields of the last book write.
func (b *Backend) LastMultipart() map[string]string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastMultipart
}

// PendingIDs returns the ids still pending on the server.
func (b *Backend) PendingIDs() []int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	ids := make([]int64, len(b.Pending))
	for i, r := range b.Pending {
		ids[i] = r.ID
	}
	return ids
}

// RecordCount returns how many borrowing records exist.
func (b *Backend) RecordCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.Records)
}

type handler func(w http.ResponseWriter, r *http.Request, ps httprouter.Params)

func (b *Backend) router() http.Handler {
	r := httprouter.New()
	r.GET("/api/library/books/", b.wrap(RouteListBooks, false, b.listBooks))
	r.POST("/api/library/books/", b.wrap(RouteCreateBook, true, b.createBook))
	r.GET("/api/library/books/:id/", b.wrap(RouteGetBook, false, b.getBook))
	r.PUT("/api/library/books/:id/", b.wrap(RouteUpdateBook, true, b.updateBook))
	r.DELETE("/api/library/books/:id/", b.wrap(RouteDeleteBook, true, b.deleteBook))
	r.POST("/api/library/books/:id/borrow/", b.wrap(RouteBorrow, true, b.borrow))
	r.POST("/api/library/requests/", b.wrap(RouteCreateRequest, true, b.createRequest))
	r.PATCH("/api/library/requests/:id/accept/", b.wrap(RouteAccept, true, b.accept))
	r.GET("/api/library/admin/requests/pending/", b.wrap(RoutePending, true, b.pending))
	r.GET("/api/library/borrowing-records/", b.wrap(RouteRecords, true, b.records))
	r.PATCH("/api/library/borrowing-records/:id/return/", b.wrap(RouteReturn, true, b.markReturned))
	r.GET("/api/library/my-borrowing-records/", b.wrap(RouteMyRecords, true, b.myRecords))
	r.GET("/api/auth/profile/", b.wrap(RouteProfile, true, b.profile))
	r.PUT("/api/auth/profile/", b.wrap(RouteUpdateProfile, true, b.updateProfile))
	r.GET("/api/auth/users/", b.wrap(RouteUsers, true, b.users))
	r.POST("/api/auth/login/", b.wrap(RouteLogin, false, b.login))
	return r
}

// wrap counts the call, applies injected delays and failures, checks the
// credential, and runs h under the lock.
func (b *Backend) wrap(route string, protected bool, h handler) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		b.mu.Lock()
		b.calls[route]++
		status := b.fail[route]
		d := b.delay[route]
		b.mu.Unlock()

		if d > 0 {
			select {
			case <-time.After(d):
			case <-r.Context().Done():
				return
			}
		}
		if status != 0 {
			writeJSON(w, status, map[string]string{"error": fmt.Sprintf("injected %s failure", route)})
			return
		}
		if protected && !b.authorized(r) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Invalid token."})
			return
		}

		b.mu.Lock()
		defer b.mu.Unlock()
		h(w, r, ps)
	}
}

func (b *Backend) authorized(r *http.Request) bool {
	h := r.Header.Get("Authorization")
	_, tok, ok := strings.Cut(h, " ")
	return ok && tok != "" && tok == b.Token
}

func (b *Backend) listBooks(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	total := 0
	for _, bk := range b.Books {
		total += bk.Quantity
	}
	books := b.Books
	if books == nil {
		books = []api.Book{}
	}
	writeJSON(w, http.StatusOK, api.BookList{TotalBooks: total, Books: books})
}

func (b *Backend) findBook(id string) int {
	for i := range b.Books {
		if b.Books[i].BookID == id {
			return i
		}
	}
	return -1
}

func (b *Backend) getBook(w http.ResponseWriter, _ *http.Request, ps httprouter.Params) {
	i := b.findBook(ps.ByName("id"))
	if i < 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}
	writeJSON(w, http.StatusOK, b.Books[i])
}

func (b *Backend) readBookForm(r *http.Request) (api.Book, error) {
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		return api.Book{}, err
	}
	fields := map[string]string{}
	for k, v := range r.MultipartForm.Value {
		if len(v) > 0 {
			fields[k] = v[0]
		}
	}
	if fh := r.MultipartForm.File["cover_image"]; len(fh) > 0 {
		fields["cover_image"] = fh[0].Filename
	}
	b.lastMultipart = fields

	qty, _ := strconv.Atoi(fields["quantity"])
	avail, _ := strconv.Atoi(fields["available_quantity"])
	bk := api.Book{
		Title:             fields["title"],
		Author:            fields["author"],
		Publisher:         fields["publisher"],
		Category:          fields["category"],
		Location:          fields["location"],
		Quantity:          qty,
		AvailableQuantity: avail,
	}
	if y, err := strconv.Atoi(fields["publication_year"]); err == nil {
		bk.PublicationYear = &y
	}
	if name := fields["cover_image"]; name != "" {
		bk.CoverImage = "/media/book_covers/" + name
	}
	return bk, nil
}

func (b *Backend) createBook(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	bk, err := b.readBookForm(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	bk.BookID = fmt.Sprintf("BK%04d", len(b.Books)+1)
	bk.DateAdded = time.Now().Format("2006-01-02")
	b.Books = append(b.Books, bk)
	writeJSON(w, http.StatusCreated, bk)
}

func (b *Backend) updateBook(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	i := b.findBook(ps.ByName("id"))
	if i < 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}
	bk, err := b.readBookForm(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	bk.BookID = b.Books[i].BookID
	bk.DateAdded = b.Books[i].DateAdded
	if bk.CoverImage == "" {
		bk.CoverImage = b.Books[i].CoverImage
	}
	b.Books[i] = bk
	writeJSON(w, http.StatusOK, bk)
}

func (b *Backend) deleteBook(w http.ResponseWriter, _ *http.Request, ps httprouter.Params) {
	i := b.findBook(ps.ByName("id"))
	if i < 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Book not found."})
		return
	}
	b.Books = append(b.Books[:i], b.Books[i+1:]...)
	w.WriteHeader(http.StatusNoContent)
}

func (b *Backend) createRequest(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var body struct {
		Book string `json:"book"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	i := b.findBook(body.Book)
	if i < 0 {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"book": {"Invalid pk - object does not exist."}})
		return
	}
	b.nextRequestID++
	req := api.BorrowRequest{
		ID:          b.nextRequestID,
		User:        b.Profile.Username,
		Book:        body.Book,
		BookDetail:  b.Books[i],
		RequestDate: time.Now().Format(time.RFC3339),
		Status:      "pending",
	}
	b.Pending = append(b.Pending, req)
	writeJSON(w, http.StatusCreated, req)
}

func (b *Backend) pending(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	out := b.Pending
	if out == nil {
		out = []api.BorrowRequest{}
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) accept(w http.ResponseWriter, _ *http.Request, ps httprouter.Params) {
	id, _ := strconv.ParseInt(ps.ByName("id"), 10, 64)
	for i, req := range b.Pending {
		if req.ID == id {
			b.Pending = append(b.Pending[:i], b.Pending[i+1:]...)
			req.Status = "approved"
			writeJSON(w, http.StatusOK, req)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
}

func (b *Backend) borrow(w http.ResponseWriter, _ *http.Request, ps httprouter.Params) {
	i := b.findBook(ps.ByName("id"))
	if i < 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}
	bk := &b.Books[i]
	if bk.AvailableQuantity <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("Book '%s' is currently unavailable.", bk.Title)})
		return
	}
	bk.AvailableQuantity--
	b.nextRecordID++
	rec := api.BorrowingRecord{
		ID:         b.nextRecordID,
		User:       b.Profile.Username,
		Book:       bk.BookID,
		BookTitle:  bk.Title,
		BorrowDate: time.Now().Format(time.RFC3339),
	}
	b.Records = append(b.Records, rec)
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message":          fmt.Sprintf("Book '%s' borrowed successfully.", bk.Title),
		"borrowing_record": rec,
	})
}

func (b *Backend) records(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	out := b.Records
	if out == nil {
		out = []api.BorrowingRecord{}
	}
	writeJSON(w, http.StatusOK, api.RecordList{Records: out, Total: len(out)})
}

func (b *Backend) myRecords(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	out := []api.BorrowingRecord{}
	for _, rec := range b.Records {
		if rec.User == b.Profile.Username {
			out = append(out, rec)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) markReturned(w http.ResponseWriter, _ *http.Request, ps httprouter.Params) {
	id, _ := strconv.ParseInt(ps.ByName("id"), 10, 64)
	for i := range b.Records {
		rec := &b.Records[i]
		if rec.ID != id {
			continue
		}
		if rec.IsReturned {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Already returned."})
			return
		}
		now := time.Now().Format(time.RFC3339)
		rec.IsReturned = true
		rec.ReturnDate = &now
		if j := b.findBook(rec.Book); j >= 0 {
			b.Books[j].AvailableQuantity++
		}
		writeJSON(w, http.StatusOK, rec)
		return
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
}

func (b *Backend) profile(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, b.Profile)
}

func (b *Backend) updateProfile(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var payload map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	b.lastProfile = payload

	str := func(k string) string {
		s, _ := payload[k].(string)
		return s
	}
	p := b.Profile
	p.Fullname = str("fullname")
	p.Role = str("role")
	p.StudentID = str("studentId")
	p.Course = str("course")
	p.Address = str("address")
	p.ContactNumber = str("contactNumber")
	p.Birthdate = str("birthdate")
	if age, ok := payload["age"].(float64); ok {
		a := int(age)
		p.Age = &a
	}
	b.Profile = p
	writeJSON(w, http.StatusOK, p)
}

func (b *Backend) users(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	out := b.Users
	if out == nil {
		out = []api.Profile{b.Profile}
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) login(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if pw, ok := b.Passwords[body.Username]; !ok || pw != body.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid credentials"})
		return
	}
	writeJSON(w, http.StatusOK, api.LoginResult{Token: b.Token, IsSuperuser: body.Username == "admin"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
