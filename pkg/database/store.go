package database

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"library-circulation/pkg/auth"
	"library-circulation/pkg/catalog"
	"library-circulation/pkg/ledger"
	"library-circulation/pkg/models"
)

// State is the in-memory circulation state rebuilt from the database.
// Loans and fines hold pointers into Items and Patrons, so mutating an
// item through the ledger mutates the same object the maps hold.
type State struct {
	Items   map[string]*catalog.Item
	Patrons map[string]*catalog.Patron
	Ledger  *ledger.Ledger
}

// LoadState rehydrates items, patrons, loans and fines. Loan rows whose
// item key is unknown (legacy data) come back with a nil item reference;
// the overdue detector handles those with the flat-rate fallback.
func LoadState(db *gorm.DB) (*State, error) {
	state := &State{
		Items:   make(map[string]*catalog.Item),
		Patrons: make(map[string]*catalog.Patron),
		Ledger:  ledger.New(),
	}

	var itemRecords []models.ItemRecord
	if err := db.Find(&itemRecords).Error; err != nil {
		return nil, err
	}
	for _, r := range itemRecords {
		state.Items[r.Key] = &catalog.Item{
			Key:       r.Key,
			Title:     r.Title,
			Author:    r.Author,
			Category:  catalog.Category(r.Category),
			Available: r.Available,
			Quantity:  r.Quantity,
		}
	}

	var patronRecords []models.PatronRecord
	if err := db.Find(&patronRecords).Error; err != nil {
		return nil, err
	}
	for _, r := range patronRecords {
		state.Patrons[r.PatronUid] = &catalog.Patron{
			ID:    r.PatronUid,
			Name:  r.Name,
			Email: r.Email,
		}
	}

	var loanRecords []models.LoanRecord
	if err := db.Order("id").Find(&loanRecords).Error; err != nil {
		return nil, err
	}
	for _, r := range loanRecords {
		state.Ledger.RestoreLoan(&ledger.Loan{
			ID:         r.LoanUid,
			Item:       state.Items[r.ItemKey],
			Patron:     state.Patrons[r.PatronUid],
			BorrowDate: r.BorrowDate,
			DueDate:    r.DueDate,
			ReturnDate: r.ReturnDate,
		})
	}

	// Insertion order decides payment order, so load fines ordered.
	var fineRecords []models.FineRecord
	if err := db.Order("id").Find(&fineRecords).Error; err != nil {
		return nil, err
	}
	for _, r := range fineRecords {
		state.Ledger.AddFine(&ledger.Fine{
			ID:          r.FineUid,
			Patron:      state.Patrons[r.PatronUid],
			Amount:      r.Amount,
			Paid:        r.Paid,
			CreatedDate: r.CreatedDate,
		})
	}

	return state, nil
}

func SaveItem(db *gorm.DB, item *catalog.Item) error {
	if item == nil {
		return nil
	}
	record := models.ItemRecord{
		Key:       item.Key,
		Title:     item.Title,
		Author:    item.Author,
		Category:  string(item.Category),
		Available: item.Available,
		Quantity:  item.Quantity,
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "author", "category", "available", "quantity"}),
	}).Create(&record).Error
}

func SavePatron(db *gorm.DB, patron *catalog.Patron) error {
	if patron == nil {
		return nil
	}
	record := models.PatronRecord{
		PatronUid: patron.ID,
		Name:      patron.Name,
		Email:     patron.Email,
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "patron_uid"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "email"}),
	}).Create(&record).Error
}

func SaveLoan(db *gorm.DB, loan *ledger.Loan) error {
	if loan == nil {
		return nil
	}
	record := models.LoanRecord{
		LoanUid:    loan.ID,
		PatronUid:  loan.Patron.ID,
		BorrowDate: loan.BorrowDate,
		DueDate:    loan.DueDate,
		ReturnDate: loan.ReturnDate,
	}
	if loan.Item != nil {
		record.ItemKey = loan.Item.Key
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "loan_uid"}},
		DoUpdates: clause.AssignmentColumns([]string{"return_date"}),
	}).Create(&record).Error
}

func SaveFine(db *gorm.DB, fine *ledger.Fine) error {
	if fine == nil {
		return nil
	}
	record := models.FineRecord{
		FineUid:     fine.ID,
		PatronUid:   fine.Patron.ID,
		Amount:      fine.Amount,
		Paid:        fine.Paid,
		CreatedDate: fine.CreatedDate,
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "fine_uid"}},
		DoUpdates: clause.AssignmentColumns([]string{"amount", "paid"}),
	}).Create(&record).Error
}

func SaveAdmin(db *gorm.DB, admin *auth.Admin) error {
	if admin == nil {
		return nil
	}
	record := models.AdminRecord{
		Username:     admin.Username,
		Name:         admin.Name,
		PasswordHash: admin.PasswordHash,
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "username"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "password_hash"}),
	}).Create(&record).Error
}

// LoadAdmins rehydrates the authentication service from stored accounts.
func LoadAdmins(db *gorm.DB, service *auth.Service) error {
	var records []models.AdminRecord
	if err := db.Find(&records).Error; err != nil {
		return err
	}
	for _, r := range records {
		service.Restore(&auth.Admin{
			Username:     r.Username,
			Name:         r.Name,
			PasswordHash: r.PasswordHash,
		})
	}
	return nil
}
