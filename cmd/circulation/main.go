package main

import (
	"log"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"library-circulation/pkg/catalog"
	"library-circulation/pkg/circuitbreaker"
	"library-circulation/pkg/database"
	"library-circulation/pkg/ledger"
	"library-circulation/pkg/models"
	"library-circulation/pkg/notify"
	"library-circulation/pkg/overdue"
	"library-circulation/pkg/queue"
)

const dateLayout = "2006-01-02"

var (
	db           *gorm.DB
	state        *database.State
	detector     *overdue.Detector
	dispatcher   *notify.Dispatcher
	mailServer   *notify.MockEmailServer
	emailChannel *notify.ReliableObserver
)

func main() {
	log.Println("Starting circulation service...")

	db = database.InitCirculationDB()
	seedDemoData()

	if err := initServices(); err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}

	server := gin.Default()
	server.GET("/api/v1/items", getItems)
	server.GET("/api/v1/items/:itemKey", getItem)
	server.POST("/api/v1/patrons", createPatron)
	server.GET("/api/v1/patrons/:patronUid/loans", getPatronLoans)
	server.GET("/api/v1/patrons/:patronUid/fines", getPatronFines)
	server.POST("/api/v1/patrons/:patronUid/fines", addFine)
	server.POST("/api/v1/patrons/:patronUid/fines/pay", payFine)
	server.GET("/api/v1/patrons/:patronUid/overdue-report", getOverdueReport)
	server.POST("/api/v1/loans", createLoan)
	server.POST("/api/v1/loans/:loanUid/return", returnLoan)
	server.GET("/api/v1/overdue", getOverdueLoans)
	server.POST("/api/v1/reminders", sendReminders)
	server.GET("/manage/health", healthCheck)

	log.Println("Circulation service starting on :8080")
	if err := server.Run(":8080"); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// initServices rebuilds the in-memory circulation state from the database
// and wires the rules engine on top of it.
func initServices() error {
	loaded, err := database.LoadState(db)
	if err != nil {
		return err
	}
	state = loaded
	detector = overdue.NewDetector(state.Ledger)

	mailServer = notify.NewMockEmailServer()
	breaker := circuitbreaker.New(3, 30*time.Second)
	emailChannel, err = notify.NewReliableObserver(
		notify.NewEmailObserver(mailServer), breaker, queue.NewQueue(), time.Minute, 5)
	if err != nil {
		return err
	}
	dispatcher, err = notify.NewDispatcher(detector, emailChannel)
	return err
}

func getItems(c *gin.Context) {
	keys := make([]string, 0, len(state.Items))
	for key := range state.Items {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	items := make([]gin.H, 0, len(keys))
	for _, key := range keys {
		items = append(items, itemJSON(state.Items[key]))
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func getItem(c *gin.Context) {
	item, ok := state.Items[c.Param("itemKey")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Item not found"})
		return
	}
	c.JSON(http.StatusOK, itemJSON(item))
}

func createPatron(c *gin.Context) {
	var request struct {
		Name  string `json:"name" binding:"required"`
		Email string `json:"email"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	patron := &catalog.Patron{
		ID:    uuid.New().String(),
		Name:  request.Name,
		Email: request.Email,
	}
	state.Patrons[patron.ID] = patron
	if err := database.SavePatron(db, patron); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"patronUid": patron.ID,
		"name":      patron.Name,
		"email":     patron.Email,
	})
}

func createLoan(c *gin.Context) {
	var request struct {
		PatronUid string `json:"patronUid" binding:"required"`
		ItemKey   string `json:"itemKey" binding:"required"`
		Date      string `json:"date" binding:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}
	date, err := time.Parse(dateLayout, request.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date format"})
		return
	}

	patron, ok := state.Patrons[request.PatronUid]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Patron not found"})
		return
	}
	item, ok := state.Items[request.ItemKey]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Item not found"})
		return
	}

	loan, err := state.Ledger.Borrow(patron, item, date)
	if err != nil {
		// Business-rule rejection: unpaid fines or overdue items.
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if loan == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Item is not available"})
		return
	}

	if err := database.SaveLoan(db, loan); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err := database.SaveItem(db, item); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, loanJSON(loan))
}

func returnLoan(c *gin.Context) {
	loanUid := c.Param("loanUid")

	var request struct {
		Date string `json:"date" binding:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}
	date, err := time.Parse(dateLayout, request.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date format"})
		return
	}

	loan := findLoan(loanUid)
	if loan == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Loan not found"})
		return
	}

	state.Ledger.Return(loan, date)
	if err := database.SaveLoan(db, loan); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if loan.Item != nil {
		if err := database.SaveItem(db, loan.Item); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}
	c.Data(http.StatusNoContent, "application/json", nil)
}

func getPatronLoans(c *gin.Context) {
	patron, ok := state.Patrons[c.Param("patronUid")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Patron not found"})
		return
	}

	var loans []*ledger.Loan
	if c.DefaultQuery("active", "false") == "true" {
		loans = state.Ledger.ActiveLoans(patron)
	} else {
		loans = state.Ledger.AllLoans(patron)
	}

	items := make([]gin.H, len(loans))
	for i, loan := range loans {
		items[i] = loanJSON(loan)
	}
	c.JSON(http.StatusOK, items)
}

func getPatronFines(c *gin.Context) {
	patron, ok := state.Patrons[c.Param("patronUid")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Patron not found"})
		return
	}

	fines := state.Ledger.UnpaidFines(patron)
	total := decimal.Zero
	items := make([]gin.H, len(fines))
	for i, fine := range fines {
		total = total.Add(fine.Amount)
		items[i] = gin.H{
			"fineUid":     fine.ID,
			"amount":      fine.Amount.String(),
			"paid":        fine.Paid,
			"createdDate": fine.CreatedDate.Format(dateLayout),
		}
	}
	c.JSON(http.StatusOK, gin.H{"outstanding": total.String(), "fines": items})
}

func addFine(c *gin.Context) {
	patron, ok := state.Patrons[c.Param("patronUid")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Patron not found"})
		return
	}

	var request struct {
		Amount string `json:"amount" binding:"required"`
		Date   string `json:"date" binding:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}
	amount, err := decimal.NewFromString(request.Amount)
	if err != nil || amount.Sign() <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be a positive number"})
		return
	}
	date, err := time.Parse(dateLayout, request.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date format"})
		return
	}

	fine := ledger.NewFine(patron, amount, date)
	state.Ledger.AddFine(fine)
	if err := database.SaveFine(db, fine); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"fineUid": fine.ID, "amount": fine.Amount.String()})
}

func payFine(c *gin.Context) {
	patron, ok := state.Patrons[c.Param("patronUid")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Patron not found"})
		return
	}

	var request struct {
		Amount string `json:"amount" binding:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}
	amount, err := decimal.NewFromString(request.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be a number"})
		return
	}

	if !state.Ledger.PayFine(patron, amount) {
		c.JSON(http.StatusConflict, gin.H{"error": "Payment not applied"})
		return
	}
	for _, fine := range state.Ledger.Fines() {
		if fine.Patron != nil && fine.Patron.ID == patron.ID {
			if err := database.SaveFine(db, fine); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
		}
	}

	outstanding := decimal.Zero
	for _, fine := range state.Ledger.UnpaidFines(patron) {
		outstanding = outstanding.Add(fine.Amount)
	}
	c.JSON(http.StatusOK, gin.H{"outstanding": outstanding.String()})
}

func getOverdueLoans(c *gin.Context) {
	asOf, ok := parseDateQuery(c)
	if !ok {
		return
	}

	loans := detector.OverdueLoans(asOf)
	items := make([]gin.H, len(loans))
	for i, loan := range loans {
		row := loanJSON(loan)
		row["daysOverdue"] = detector.DaysOverdue(loan, asOf)
		row["fine"] = detector.CalculateLoanFine(loan, asOf).String()
		items[i] = row
	}
	c.JSON(http.StatusOK, items)
}

func getOverdueReport(c *gin.Context) {
	patron, ok := state.Patrons[c.Param("patronUid")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Patron not found"})
		return
	}
	asOf, ok := parseDateQuery(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, detector.MixedMediaOverdueReport(patron, asOf))
}

func sendReminders(c *gin.Context) {
	var request struct {
		Date string `json:"date" binding:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}
	asOf, err := time.Parse(dateLayout, request.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date format"})
		return
	}

	sent := dispatcher.SendOverdueReminders(asOf)
	redelivered := emailChannel.FlushRetries(time.Now())
	c.JSON(http.StatusOK, gin.H{
		"remindersSent": sent,
		"redelivered":   redelivered,
		"pendingRetry":  emailChannel.Pending(),
	})
}

func healthCheck(ctx *gin.Context) {
	sqlDB, err := db.DB()
	if err != nil {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "DOWN",
			"details": "Database connection failed",
			"error":   err.Error(),
		})
		return
	}
	if err := sqlDB.Ping(); err != nil {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "DOWN",
			"details": "Database ping failed",
			"error":   err.Error(),
		})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "UP"})
}

func findLoan(loanUid string) *ledger.Loan {
	for _, loan := range state.Ledger.Loans() {
		if loan.ID == loanUid {
			return loan
		}
	}
	return nil
}

func parseDateQuery(c *gin.Context) (time.Time, bool) {
	raw := c.Query("date")
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date is required"})
		return time.Time{}, false
	}
	asOf, err := time.Parse(dateLayout, raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date format"})
		return time.Time{}, false
	}
	return asOf, true
}

func itemJSON(item *catalog.Item) gin.H {
	return gin.H{
		"key":       item.Key,
		"title":     item.Title,
		"author":    item.Author,
		"category":  string(item.Category),
		"available": item.IsAvailable(),
		"quantity":  item.Quantity,
	}
}

func loanJSON(loan *ledger.Loan) gin.H {
	row := gin.H{
		"loanUid":    loan.ID,
		"borrowDate": loan.BorrowDate.Format(dateLayout),
		"dueDate":    loan.DueDate.Format(dateLayout),
		"returned":   loan.IsReturned(),
	}
	if loan.Patron != nil {
		row["patronUid"] = loan.Patron.ID
	}
	if loan.Item != nil {
		row["itemKey"] = loan.Item.Key
		row["category"] = string(loan.Item.Category)
	}
	if loan.ReturnDate != nil {
		row["returnDate"] = loan.ReturnDate.Format(dateLayout)
	}
	return row
}

func seedDemoData() {
	var count int64
	db.Model(&models.ItemRecord{}).Count(&count)
	if count > 0 {
		return
	}

	seedItems := []*catalog.Item{
		catalog.NewBook("The Go Programming Language", "Alan Donovan", "978-0134190440", 3),
		catalog.NewCD("Kind of Blue", "Miles Davis", "CD-0001"),
		catalog.NewJournal("Communications of the ACM", "0001-0782"),
	}
	for _, item := range seedItems {
		if err := database.SaveItem(db, item); err != nil {
			log.Printf("Failed to seed item %s: %v", item.Key, err)
		}
	}

	seedPatrons := []*catalog.Patron{
		{ID: uuid.New().String(), Name: "Alice Example", Email: "alice@example.com"},
		{ID: uuid.New().String(), Name: "Bob Example", Email: "bob@example.com"},
	}
	for _, patron := range seedPatrons {
		if err := database.SavePatron(db, patron); err != nil {
			log.Printf("Failed to seed patron %s: %v", patron.Name, err)
		}
	}
	log.Println("Circulation demo data seeded")
}
