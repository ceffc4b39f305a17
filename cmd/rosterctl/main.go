// rosterctl inspects a roster database offline. It opens the store
// read-only, so it is safe to run against a live server's files.
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"

	"roster-lab/domain"
	"roster-lab/repositories"
)

func main() {
	dbPath := flag.String("db", "/tmp/roster-lab", "Path to badger DB")
	tenant := flag.String("tenant", "", "Tenant to inspect (required)")
	sessionID := flag.String("session", "", "Session ID: also print its roster and waitlist")
	flag.Parse()

	if *tenant == "" {
		flag.Usage()
		os.Exit(2)
	}

	db, err := openDB(*dbPath)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	sessions := repositories.NewSessionRepository(db, slog.New(slog.DiscardHandler))
	enrollments := repositories.NewEnrollmentRepository(db)
	waitlist := repositories.NewWaitlistRepository(db)

	if err := printSessions(sessions, domain.TenantID(*tenant)); err != nil {
		log.Fatal(err)
	}

	if *sessionID != "" {
		id, err := uuid.Parse(*sessionID)
		if err != nil {
			log.Fatal("Invalid session ID: ", err)
		}
		if err := printRoster(enrollments, domain.TenantID(*tenant), id); err != nil {
			log.Fatal(err)
		}
		if err := printWaitlist(waitlist, domain.TenantID(*tenant), id); err != nil {
			log.Fatal(err)
		}
	}
}

func printSessions(repo repositories.ISessionRepository, tenant domain.TenantID) error {
	sessions, err := repo.ListByTenant(tenant)
	if err != nil {
		return err
	}

	banner(fmt.Sprintf("Sessions (%s)", tenant))
	table := newTable([]string{"ID", "Status", "Organizer", "Capacity", "Scheduled At", "Kind", "Location"})
	for _, s := range sessions {
		table.Append([]string{
			s.ID.String(),
			string(s.Status),
			string(s.Organizer),
			strconv.Itoa(s.Capacity),
			s.ScheduledAt.Format(time.RFC3339),
			s.Kind,
			s.Location,
		})
	}
	table.Render()
	return nil
}

func printRoster(repo repositories.IEnrollmentRepository, tenant domain.TenantID, session uuid.UUID) error {
	roster, err := repo.ListBySession(tenant, session)
	if err != nil {
		return err
	}

	banner("Roster")
	table := newTable([]string{"User", "Admission", "Payment", "Enrolled At", "Offered At"})
	for _, e := range roster {
		offeredAt := ""
		if e.OfferedAt != nil {
			offeredAt = e.OfferedAt.Format(time.RFC3339)
		}
		table.Append([]string{
			string(e.User),
			string(e.Admission),
			string(e.Payment),
			e.EnrolledAt.Format(time.RFC3339),
			offeredAt,
		})
	}
	table.Render()
	return nil
}

func printWaitlist(repo repositories.IWaitlistRepository, tenant domain.TenantID, session uuid.UUID) error {
	entries, err := repo.List(tenant, session)
	if err != nil {
		return err
	}

	banner("Waitlist")
	table := newTable([]string{"Position", "User", "Joined At"})
	for _, w := range entries {
		table.Append([]string{
			strconv.Itoa(w.Position),
			string(w.User),
			w.JoinedAt.Format(time.RFC3339),
		})
	}
	table.Render()
	return nil
}

func banner(title string) {
	fmt.Println(color.New(color.BgBlack, color.FgGreen).Render(" " + title + " "))
}

func newTable(header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	return table
}

func openDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true)
	return badger.Open(opts)
}
