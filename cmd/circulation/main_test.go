package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library-circulation/pkg/catalog"
	"library-circulation/pkg/database"
	"library-circulation/pkg/ledger"
)

func setupTest(t *testing.T) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	testDB, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	db = testDB
	require.NoError(t, initServices())
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func addTestItem(t *testing.T, item *catalog.Item) *catalog.Item {
	t.Helper()
	state.Items[item.Key] = item
	require.NoError(t, database.SaveItem(db, item))
	return item
}

func addTestPatron(t *testing.T, id string) *catalog.Patron {
	t.Helper()
	patron := &catalog.Patron{ID: id, Name: "Test Patron", Email: "patron@example.com"}
	state.Patrons[id] = patron
	require.NoError(t, database.SavePatron(db, patron))
	return patron
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	return response
}

func TestGetItems(t *testing.T) {
	setupTest(t)
	addTestItem(t, catalog.NewBook("Test Book", "Test Author", "ISBN123", 3))
	addTestItem(t, catalog.NewCD("Test CD", "Test Artist", "CD001"))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/api/v1/items", nil)

	getItems(c)

	assert.Equal(t, http.StatusOK, w.Code)
	response := decodeBody(t, w)
	items := response["items"].([]interface{})
	assert.Equal(t, 2, len(items))
}

func TestGetItemNotFound(t *testing.T) {
	setupTest(t)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/api/v1/items/missing", nil)
	c.Params = gin.Params{{Key: "itemKey", Value: "missing"}}

	getItem(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreatePatron(t *testing.T) {
	setupTest(t)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = jsonRequest("POST", "/api/v1/patrons", `{"name":"John Doe","email":"john@example.com"}`)

	createPatron(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	response := decodeBody(t, w)
	assert.NotEmpty(t, response["patronUid"])
	assert.Equal(t, "John Doe", response["name"])
	assert.Len(t, state.Patrons, 1)
}

func TestCreatePatronRequiresName(t *testing.T) {
	setupTest(t)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = jsonRequest("POST", "/api/v1/patrons", `{"email":"john@example.com"}`)

	createPatron(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateLoan(t *testing.T) {
	setupTest(t)
	addTestItem(t, catalog.NewBook("Test Book", "Test Author", "ISBN123", 3))
	addTestPatron(t, "U001")

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = jsonRequest("POST", "/api/v1/loans",
		`{"patronUid":"U001","itemKey":"ISBN123","date":"2025-01-01"}`)

	createLoan(c)

	assert.Equal(t, http.StatusOK, w.Code)
	response := decodeBody(t, w)
	assert.Equal(t, "2025-01-29", response["dueDate"])
	assert.Equal(t, "ISBN123", response["itemKey"])
	assert.Equal(t, 2, state.Items["ISBN123"].Quantity)
}

func TestCreateLoanUnknownItem(t *testing.T) {
	setupTest(t)
	addTestPatron(t, "U001")

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = jsonRequest("POST", "/api/v1/loans",
		`{"patronUid":"U001","itemKey":"missing","date":"2025-01-01"}`)

	createLoan(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateLoanUnavailableItem(t *testing.T) {
	setupTest(t)
	addTestItem(t, catalog.NewBook("Test Book", "Test Author", "ISBN123", 0))
	addTestPatron(t, "U001")

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = jsonRequest("POST", "/api/v1/loans",
		`{"patronUid":"U001","itemKey":"ISBN123","date":"2025-01-01"}`)

	createLoan(c)

	assert.Equal(t, http.StatusConflict, w.Code)
	response := decodeBody(t, w)
	assert.Equal(t, "Item is not available", response["error"])
}

func TestCreateLoanBlockedByFines(t *testing.T) {
	setupTest(t)
	addTestItem(t, catalog.NewBook("Test Book", "Test Author", "ISBN123", 3))
	patron := addTestPatron(t, "U001")
	state.Ledger.AddFine(ledger.NewFine(patron, decimal.NewFromInt(5), time.Now()))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = jsonRequest("POST", "/api/v1/loans",
		`{"patronUid":"U001","itemKey":"ISBN123","date":"2025-01-01"}`)

	createLoan(c)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, 3, state.Items["ISBN123"].Quantity)
}

func TestReturnLoan(t *testing.T) {
	setupTest(t)
	item := addTestItem(t, catalog.NewCD("Test CD", "Test Artist", "CD001"))
	patron := addTestPatron(t, "U001")
	loan, err := state.Ledger.Borrow(patron, item, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NoError(t, database.SaveLoan(db, loan))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = jsonRequest("POST", "/api/v1/loans/"+loan.ID+"/return", `{"date":"2025-01-05"}`)
	c.Params = gin.Params{{Key: "loanUid", Value: loan.ID}}

	returnLoan(c)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.True(t, loan.IsReturned())
	assert.True(t, item.IsAvailable())
}

func TestReturnLoanNotFound(t *testing.T) {
	setupTest(t)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = jsonRequest("POST", "/api/v1/loans/missing/return", `{"date":"2025-01-05"}`)
	c.Params = gin.Params{{Key: "loanUid", Value: "missing"}}

	returnLoan(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetPatronLoansActiveFilter(t *testing.T) {
	setupTest(t)
	first := addTestItem(t, catalog.NewBook("One", "Author", "ISBN1", 1))
	second := addTestItem(t, catalog.NewBook("Two", "Author", "ISBN2", 1))
	patron := addTestPatron(t, "U001")

	borrowDate := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	loan, err := state.Ledger.Borrow(patron, first, borrowDate)
	require.NoError(t, err)
	_, err = state.Ledger.Borrow(patron, second, borrowDate)
	require.NoError(t, err)
	state.Ledger.Return(loan, borrowDate.AddDate(0, 0, 5))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/api/v1/patrons/U001/loans?active=true", nil)
	c.Params = gin.Params{{Key: "patronUid", Value: "U001"}}

	getPatronLoans(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var loans []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &loans))
	assert.Len(t, loans, 1)
	assert.Equal(t, "ISBN2", loans[0]["itemKey"])
}

func TestAddAndPayFine(t *testing.T) {
	setupTest(t)
	addTestPatron(t, "U001")

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = jsonRequest("POST", "/api/v1/patrons/U001/fines", `{"amount":"10","date":"2025-01-01"}`)
	c.Params = gin.Params{{Key: "patronUid", Value: "U001"}}

	addFine(c)
	assert.Equal(t, http.StatusCreated, w.Code)

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Request = jsonRequest("POST", "/api/v1/patrons/U001/fines/pay", `{"amount":"4"}`)
	c.Params = gin.Params{{Key: "patronUid", Value: "U001"}}

	payFine(c)
	assert.Equal(t, http.StatusOK, w.Code)
	response := decodeBody(t, w)
	assert.Equal(t, "6", response["outstanding"])
}

func TestPayFineWithoutOutstanding(t *testing.T) {
	setupTest(t)
	addTestPatron(t, "U001")

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = jsonRequest("POST", "/api/v1/patrons/U001/fines/pay", `{"amount":"5"}`)
	c.Params = gin.Params{{Key: "patronUid", Value: "U001"}}

	payFine(c)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestGetPatronFines(t *testing.T) {
	setupTest(t)
	patron := addTestPatron(t, "U001")
	state.Ledger.AddFine(ledger.NewFine(patron, decimal.NewFromInt(10), time.Now()))
	state.Ledger.AddFine(ledger.NewFine(patron, decimal.NewFromInt(5), time.Now()))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/api/v1/patrons/U001/fines", nil)
	c.Params = gin.Params{{Key: "patronUid", Value: "U001"}}

	getPatronFines(c)

	assert.Equal(t, http.StatusOK, w.Code)
	response := decodeBody(t, w)
	assert.Equal(t, "15", response["outstanding"])
}

func TestGetOverdueLoans(t *testing.T) {
	setupTest(t)
	item := addTestItem(t, catalog.NewCD("Test CD", "Test Artist", "CD001"))
	patron := addTestPatron(t, "U001")
	_, err := state.Ledger.Borrow(patron, item, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/api/v1/overdue?date=2025-01-11", nil)

	getOverdueLoans(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var loans []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &loans))
	require.Len(t, loans, 1)
	assert.Equal(t, float64(3), loans[0]["daysOverdue"])
	assert.Equal(t, "60", loans[0]["fine"])
}

func TestGetOverdueLoansRequiresDate(t *testing.T) {
	setupTest(t)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/api/v1/overdue", nil)

	getOverdueLoans(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetOverdueReport(t *testing.T) {
	setupTest(t)
	book := addTestItem(t, catalog.NewBook("Test Book", "Test Author", "ISBN123", 1))
	cd := addTestItem(t, catalog.NewCD("Test CD", "Test Artist", "CD001"))
	patron := addTestPatron(t, "U001")

	borrowDate := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := state.Ledger.Borrow(patron, book, borrowDate)
	require.NoError(t, err)
	_, err = state.Ledger.Borrow(patron, cd, borrowDate)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/api/v1/patrons/U001/overdue-report?date=2025-01-31", nil)
	c.Params = gin.Params{{Key: "patronUid", Value: "U001"}}

	getOverdueReport(c)

	assert.Equal(t, http.StatusOK, w.Code)
	response := decodeBody(t, w)
	assert.Equal(t, float64(2), response["totalItems"])
	assert.Equal(t, float64(480), response["totalFine"])
}

func TestSendReminders(t *testing.T) {
	setupTest(t)
	item := addTestItem(t, catalog.NewCD("Test CD", "Test Artist", "CD001"))
	patron := addTestPatron(t, "U001")
	_, err := state.Ledger.Borrow(patron, item, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = jsonRequest("POST", "/api/v1/reminders", `{"date":"2025-01-31"}`)

	sendReminders(c)

	assert.Equal(t, http.StatusOK, w.Code)
	response := decodeBody(t, w)
	assert.Equal(t, float64(1), response["remindersSent"])
	assert.Equal(t, 1, mailServer.SentCount())
	assert.Equal(t, "patron@example.com", mailServer.SentEmails()[0].To)
}

func TestHealthCheck(t *testing.T) {
	setupTest(t)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/manage/health", nil)

	healthCheck(c)

	assert.Equal(t, http.StatusOK, w.Code)
	response := decodeBody(t, w)
	assert.Equal(t, "UP", response["status"])
}
