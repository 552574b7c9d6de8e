package main

import (
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gorm.io/gorm"

	"library-circulation/pkg/auth"
	"library-circulation/pkg/catalog"
	"library-circulation/pkg/database"
	"library-circulation/pkg/fines"
	"library-circulation/pkg/ledger"
	"library-circulation/pkg/overdue"
)

const dateLayout = "2006-01-02"

var dbPath string

func main() {
	root := &cobra.Command{
		Use:   "circulationctl",
		Short: "Admin tool for the library circulation database",
	}
	root.PersistentFlags().StringVar(&dbPath, "db", "circulation.db", "path to the sqlite database")

	root.AddCommand(
		registerAdminCmd(),
		addItemCmd(),
		addPatronCmd(),
		borrowCmd(),
		returnCmd(),
		payCmd(),
		overdueCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func openDB() (*gorm.DB, error) {
	return database.OpenSQLite(dbPath)
}

func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	raw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(raw)), nil
}

// loginAdmin prompts for the admin password and opens a session against
// the accounts stored in the database.
func loginAdmin(db *gorm.DB, username string) (*auth.Service, error) {
	service := auth.NewService()
	if err := database.LoadAdmins(db, service); err != nil {
		return nil, err
	}
	password, err := readPassword(fmt.Sprintf("Password for %s: ", username))
	if err != nil {
		return nil, err
	}
	if !service.Login(username, password) {
		return nil, fmt.Errorf("invalid credentials for %s", username)
	}
	return service, nil
}

func registerAdminCmd() *cobra.Command {
	var username, name string
	cmd := &cobra.Command{
		Use:   "register-admin",
		Short: "Register an admin account",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			password, err := readPassword("New password: ")
			if err != nil {
				return err
			}
			confirm, err := readPassword("Confirm password: ")
			if err != nil {
				return err
			}
			if password != confirm {
				return fmt.Errorf("passwords do not match")
			}

			service := auth.NewService()
			if err := service.Register(username, name, password); err != nil {
				return err
			}
			for _, admin := range service.Admins() {
				if err := database.SaveAdmin(db, admin); err != nil {
					return err
				}
			}
			fmt.Printf("Admin %s registered\n", username)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "admin username")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.MarkFlagRequired("username")
	return cmd
}

func addItemCmd() *cobra.Command {
	var admin, category, title, author, key string
	var quantity int
	cmd := &cobra.Command{
		Use:   "add-item",
		Short: "Add a book, CD or journal to the catalog (admin only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			authService, err := loginAdmin(db, admin)
			if err != nil {
				return err
			}

			var item *catalog.Item
			switch catalog.Category(strings.ToUpper(category)) {
			case catalog.CategoryBook:
				item = catalog.NewBook(title, author, key, quantity)
			case catalog.CategoryCD:
				item = catalog.NewCD(title, author, key)
			case catalog.CategoryJournal:
				item = catalog.NewJournal(title, key)
			default:
				return fmt.Errorf("unknown category %q (BOOK, CD or JOURNAL)", category)
			}

			state, err := database.LoadState(db)
			if err != nil {
				return err
			}
			shelf := catalog.NewShelf(authService)
			for _, existing := range state.Items {
				shelf.AddDirect(existing)
			}
			if err := shelf.Add(item); err != nil {
				return err
			}
			if err := database.SaveItem(db, item); err != nil {
				return err
			}
			fmt.Printf("Added %s %q (%s)\n", strings.ToLower(category), title, key)
			return nil
		},
	}
	cmd.Flags().StringVar(&admin, "admin", "", "admin username")
	cmd.Flags().StringVar(&category, "category", "BOOK", "item category: BOOK, CD or JOURNAL")
	cmd.Flags().StringVar(&title, "title", "", "item title")
	cmd.Flags().StringVar(&author, "author", "", "author or artist")
	cmd.Flags().StringVar(&key, "key", "", "ISBN, catalog number or ISSN")
	cmd.Flags().IntVar(&quantity, "quantity", 1, "copies (books only)")
	cmd.MarkFlagRequired("admin")
	cmd.MarkFlagRequired("title")
	cmd.MarkFlagRequired("key")
	return cmd
}

func addPatronCmd() *cobra.Command {
	var name, email string
	cmd := &cobra.Command{
		Use:   "add-patron",
		Short: "Register a patron",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			patron := &catalog.Patron{ID: uuid.New().String(), Name: name, Email: email}
			if err := database.SavePatron(db, patron); err != nil {
				return err
			}
			fmt.Printf("Patron %s registered with id %s\n", name, patron.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "patron name")
	cmd.Flags().StringVar(&email, "email", "", "patron email")
	cmd.MarkFlagRequired("name")
	return cmd
}

func borrowCmd() *cobra.Command {
	var patronUid, itemKey, date string
	cmd := &cobra.Command{
		Use:   "borrow",
		Short: "Borrow an item for a patron",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			state, err := database.LoadState(db)
			if err != nil {
				return err
			}
			borrowDate, err := time.Parse(dateLayout, date)
			if err != nil {
				return fmt.Errorf("invalid date %q, expected YYYY-MM-DD", date)
			}
			patron, ok := state.Patrons[patronUid]
			if !ok {
				return fmt.Errorf("patron %s not found", patronUid)
			}
			item, ok := state.Items[itemKey]
			if !ok {
				return fmt.Errorf("item %s not found", itemKey)
			}

			loan, err := state.Ledger.Borrow(patron, item, borrowDate)
			if err != nil {
				return err
			}
			if loan == nil {
				return fmt.Errorf("item %s is not available", itemKey)
			}
			if err := database.SaveLoan(db, loan); err != nil {
				return err
			}
			if err := database.SaveItem(db, item); err != nil {
				return err
			}
			fmt.Printf("Loan %s created, due %s\n", loan.ID, loan.DueDate.Format(dateLayout))
			return nil
		},
	}
	cmd.Flags().StringVar(&patronUid, "patron", "", "patron id")
	cmd.Flags().StringVar(&itemKey, "item", "", "item key")
	cmd.Flags().StringVar(&date, "date", "", "borrow date (YYYY-MM-DD)")
	cmd.MarkFlagRequired("patron")
	cmd.MarkFlagRequired("item")
	cmd.MarkFlagRequired("date")
	return cmd
}

func returnCmd() *cobra.Command {
	var loanUid, date string
	cmd := &cobra.Command{
		Use:   "return",
		Short: "Return a borrowed item",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			state, err := database.LoadState(db)
			if err != nil {
				return err
			}
			returnDate, err := time.Parse(dateLayout, date)
			if err != nil {
				return fmt.Errorf("invalid date %q, expected YYYY-MM-DD", date)
			}

			var loan *ledger.Loan
			for _, l := range state.Ledger.Loans() {
				if l.ID == loanUid {
					loan = l
					break
				}
			}
			if loan == nil {
				return fmt.Errorf("loan %s not found", loanUid)
			}

			state.Ledger.Return(loan, returnDate)
			if err := database.SaveLoan(db, loan); err != nil {
				return err
			}
			if loan.Item != nil {
				if err := database.SaveItem(db, loan.Item); err != nil {
					return err
				}
			}
			fmt.Printf("Loan %s returned on %s\n", loan.ID, date)
			return nil
		},
	}
	cmd.Flags().StringVar(&loanUid, "loan", "", "loan id")
	cmd.Flags().StringVar(&date, "date", "", "return date (YYYY-MM-DD)")
	cmd.MarkFlagRequired("loan")
	cmd.MarkFlagRequired("date")
	return cmd
}

func payCmd() *cobra.Command {
	var patronUid, amount string
	cmd := &cobra.Command{
		Use:   "pay",
		Short: "Apply a fine payment for a patron",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			state, err := database.LoadState(db)
			if err != nil {
				return err
			}
			patron, ok := state.Patrons[patronUid]
			if !ok {
				return fmt.Errorf("patron %s not found", patronUid)
			}
			payment, err := decimal.NewFromString(amount)
			if err != nil {
				return fmt.Errorf("invalid amount %q", amount)
			}

			if !state.Ledger.PayFine(patron, payment) {
				return fmt.Errorf("payment not applied")
			}
			for _, fine := range state.Ledger.Fines() {
				if fine.Patron != nil && fine.Patron.ID == patron.ID {
					if err := database.SaveFine(db, fine); err != nil {
						return err
					}
				}
			}

			outstanding := decimal.Zero
			for _, fine := range state.Ledger.UnpaidFines(patron) {
				outstanding = outstanding.Add(fine.Amount)
			}
			fmt.Printf("Payment applied, outstanding balance %s\n", outstanding.String())
			return nil
		},
	}
	cmd.Flags().StringVar(&patronUid, "patron", "", "patron id")
	cmd.Flags().StringVar(&amount, "amount", "", "payment amount")
	cmd.MarkFlagRequired("patron")
	cmd.MarkFlagRequired("amount")
	return cmd
}

func overdueCmd() *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "overdue",
		Short: "List overdue loans with computed fines",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			state, err := database.LoadState(db)
			if err != nil {
				return err
			}
			asOf, err := time.Parse(dateLayout, date)
			if err != nil {
				return fmt.Errorf("invalid date %q, expected YYYY-MM-DD", date)
			}

			detector := overdue.NewDetector(state.Ledger)
			loans := detector.OverdueLoans(asOf)
			if len(loans) == 0 {
				fmt.Println("No overdue loans")
				return nil
			}
			for _, loan := range loans {
				name := "(unknown)"
				if loan.Patron != nil {
					name = loan.Patron.Name
				}
				title := "(no item on record)"
				rate := "flat"
				if loan.Item != nil {
					title = loan.Item.Title
					if s, err := fines.ForCategory(loan.Item.Category); err == nil {
						rate = fmt.Sprintf("%d/day", s.RatePerDay)
					}
				}
				fmt.Printf("%-36s %-30s %-20s %3d days  fine %s (%s)\n",
					loan.ID, title, name,
					detector.DaysOverdue(loan, asOf),
					detector.CalculateLoanFine(loan, asOf).String(), rate)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "reference date (YYYY-MM-DD)")
	cmd.MarkFlagRequired("date")
	return cmd
}
