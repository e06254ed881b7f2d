// Command vegfestctl is operator tooling that works directly on the database:
// bootstrapping admins and reading the audit trail.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/gdg-garage/vegfest-api/internal/audit"
	"github.com/gdg-garage/vegfest-api/internal/config"
	"github.com/gdg-garage/vegfest-api/internal/database"
	"github.com/gdg-garage/vegfest-api/internal/models"
	"gorm.io/gorm"
)

const actorName = "vegfestctl"

func main() {
	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}

	cfg := config.LoadConfig()
	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	ctx := context.Background()
	switch os.Args[1] {
	case "promote":
		err = runPromote(ctx, db, os.Args[2:], os.Stdout)
	case "audit":
		err = runAudit(ctx, db, os.Args[2:], os.Stdout)
	case "help", "-h", "--help":
		usage(os.Stdout)
		return
	default:
		usage(os.Stderr)
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("%s: %v", os.Args[1], err)
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: vegfestctl <command> [flags]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "commands:")
	fmt.Fprintln(w, "  promote   set a user's role and approver flag")
	fmt.Fprintln(w, "  audit     print audit log entries")
}

func runPromote(ctx context.Context, db *gorm.DB, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("promote", flag.ContinueOnError)
	discordID := fs.String("discord-id", "", "Discord id of the user")
	userID := fs.Uint("user-id", 0, "database id of the user")
	role := fs.String("role", string(models.RoleAdmin), "USER, ADMIN or SUPER_ADMIN")
	approver := fs.Bool("approver", false, "allow the user to cast approval votes")
	if err := fs.Parse(args); err != nil {
		return err
	}

	newRole := models.Role(strings.ToUpper(*role))
	if !newRole.Valid() {
		return fmt.Errorf("invalid role %q", *role)
	}

	var user models.User
	q := db.WithContext(ctx)
	switch {
	case *userID != 0:
		q = q.Where("id = ?", *userID)
	case *discordID != "":
		q = q.Where("discord_id = ?", *discordID)
	default:
		return errors.New("one of -user-id or -discord-id is required")
	}
	if err := q.First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errors.New("user not found, they must sign in once first")
		}
		return err
	}

	original := user
	user.Role = newRole
	user.Approver = *approver

	changes, err := audit.Diff(original, user)
	if err != nil {
		return err
	}
	if changes.Empty() {
		fmt.Fprintf(out, "%s is already %s (approver=%t)\n", user.DisplayName(), user.Role, user.Approver)
		return nil
	}

	err = db.WithContext(ctx).Model(&user).
		Updates(map[string]any{"role": user.Role, "approver": user.Approver}).Error
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	err = audit.NewWriter(db).Record(ctx, audit.Entry{
		ActorName:  actorName,
		EntityID:   user.ID,
		EntityType: audit.EntityUser,
		Action:     audit.ActionUpdateUserRole,
		Target:     user.DisplayName(),
		Changes:    changes.ChangeSet(),
	})
	if err != nil {
		return fmt.Errorf("record audit entry: %w", err)
	}

	fmt.Fprintf(out, "%s is now %s (approver=%t)\n", user.DisplayName(), user.Role, user.Approver)
	return nil
}

func runAudit(ctx context.Context, db *gorm.DB, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("audit", flag.ContinueOnError)
	registrationID := fs.Uint("registration", 0, "only entries for this registration")
	action := fs.String("action", "", "only entries with this action code")
	limit := fs.Int("limit", 20, "maximum number of entries")
	if err := fs.Parse(args); err != nil {
		return err
	}

	f := audit.Filter{Action: *action, Limit: *limit}
	if *registrationID != 0 {
		f.EntityType = audit.EntityRegistration
		f.EntityID = *registrationID
	}
	logs, err := audit.NewWriter(db).List(ctx, f)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tACTOR\tENTITY\tACTION\tCHANGES\tDETAILS")
	for _, l := range logs {
		changes, err := audit.DecodeChanges(l.Changes)
		if err != nil {
			return fmt.Errorf("entry %s: %w", l.EventID, err)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s #%d\t%s\t%s\t%s\n",
			l.Timestamp.Local().Format(time.DateTime),
			l.ActorName,
			l.EntityType, l.EntityID,
			l.Action,
			formatChanges(changes),
			l.Details,
		)
	}
	return tw.Flush()
}

func formatChanges(changes audit.ChangeSet) string {
	parts := make([]string, 0, len(changes))
	for _, c := range changes {
		switch c := c.(type) {
		case audit.StatusChange:
			parts = append(parts, fmt.Sprintf("status: %s -> %s", c.Old, c.New))
		case audit.FieldChange:
			parts = append(parts, fmt.Sprintf("%s: %v -> %v", c.Field, c.Old, c.New))
		}
	}
	return strings.Join(parts, "; ")
}
