package cli

import (
	"context"
	"errors"
	"fmt"
	"image/png"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/visitdesk/internal/desk/filter"
	"github.com/dmitrijs2005/visitdesk/internal/desk/journal"
	"github.com/dmitrijs2005/visitdesk/internal/desk/models"
	"github.com/dmitrijs2005/visitdesk/internal/desk/phone"
	"github.com/dmitrijs2005/visitdesk/internal/desk/service"
	"github.com/dmitrijs2005/visitdesk/internal/desk/signature"
	"github.com/dmitrijs2005/visitdesk/internal/filex"
)

const listTimeLayout = "02 Jan 15:04"

var errUsage = errors.New("usage")

func usage(s string) error { return fmt.Errorf("%w: %s", errUsage, s) }

// target parses "<source> <id>" and checks the record exists.
func (a *App) target(args []string, cmd string) (models.VisitRecord, error) {
	if len(args) < 2 {
		return models.VisitRecord{}, usage(cmd + " <source> <id>")
	}
	src, err := models.ParseSource(args[0])
	if err != nil {
		return models.VisitRecord{}, err
	}
	return a.desk.Record(src, args[1])
}

func (a *App) fmtTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.In(a.loc).Format(listTimeLayout)
}

func (a *App) List(_ context.Context, _ []string) error {
	if !a.desk.Loaded() {
		fmt.Fprintln(a.out, "Records are still loading")
		return nil
	}
	v := a.desk.Board().View()
	fmt.Fprintf(a.out, "All: %d  New: %d  Checked In: %d  Checked Out: %d  (updated %s)\n",
		v.Counts.All, v.Counts.New, v.Counts.CheckedIn, v.Counts.CheckedOut,
		a.desk.UpdatedAt().In(a.loc).Format("15:04:05"))
	if len(v.Display) == 0 {
		fmt.Fprintln(a.out, "No records match the current filters")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RECORD\tNAME\tCOMPANY\tHOST\tSTATUS\tIN\tOUT\tBADGE\tACTIONS")
	for _, r := range v.Display {
		status := string(r.Status)
		if r.Overdue {
			status += " OVERDUE"
		}
		actions := make([]string, 0, len(r.Actions))
		for _, act := range r.Actions {
			actions = append(actions, string(act))
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Key(), r.FullName(), orDash(r.Company), orDash(r.Host), status,
			a.fmtTime(r.CheckInRef()), a.fmtTime(r.CheckOutRef()), orDash(r.CardNo),
			strings.Join(actions, ","))
	}
	return tw.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func (a *App) Status(_ context.Context, args []string) error {
	if len(args) != 1 {
		return usage("status <all|new|checkedIn|checkedOut>")
	}
	return a.desk.Board().SetStatus(args[0])
}

func (a *App) Search(_ context.Context, args []string) error {
	return a.desk.Board().SetQuery(strings.Join(args, " "))
}

func (a *App) Range(_ context.Context, args []string) error {
	if len(args) == 0 || len(args) > 2 {
		return usage("range <from|-> [to|-]")
	}
	from := dashEmpty(args[0])
	to := ""
	if len(args) == 2 {
		to = dashEmpty(args[1])
	}
	return a.desk.Board().SetRange(from, to)
}

func dashEmpty(s string) string {
	if s == "-" {
		return ""
	}
	return s
}

func (a *App) Quick(_ context.Context, args []string) error {
	if len(args) != 1 {
		return usage("quick <today|yesterday|last7|none>")
	}
	q, err := filter.ParseQuick(args[0])
	if err != nil {
		return err
	}
	return a.desk.Board().ToggleQuick(q)
}

func (a *App) Clear(_ context.Context, _ []string) error {
	a.desk.Board().Clear()
	return nil
}

func (a *App) Refresh(ctx context.Context, _ []string) error {
	res, err := a.desk.Refresh(ctx)
	if err != nil {
		return err
	}
	if !res.Applied {
		fmt.Fprintln(a.out, "A newer fetch already updated the board")
		return nil
	}
	fmt.Fprintf(a.out, "Loaded %d records\n", res.Records)
	for _, src := range res.Failed {
		fmt.Fprintf(a.out, "Warning: %s could not be fetched\n", src.Collection())
	}
	return nil
}

// readSignature loads a PNG and turns it into the data URL the state
// machine expects.
func readSignature(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		return "", fmt.Errorf("signature %s: %w", path, err)
	}
	return signature.Encode(img)
}

func (a *App) Authorize(ctx context.Context, args []string) error {
	rec, err := a.target(args, "authorize")
	if err != nil {
		return err
	}
	consent, err := a.desk.Consent(rec.Source, rec.ID)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, consent.Text())

	agreed, err := GetYesNo(a.reader, "Consent given?", a.out)
	if err != nil {
		return err
	}
	path, err := GetSimpleText(a.reader, "Signature PNG file", a.out)
	if err != nil {
		return err
	}
	sig := ""
	if path != "" {
		if sig, err = readSignature(path); err != nil {
			return err
		}
	}

	res, err := a.desk.Authorize(ctx, rec.Source, rec.ID, agreed, sig)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s checked in\n", res.Record.FullName())
	return nil
}

func (a *App) Badge(ctx context.Context, args []string) error {
	rec, err := a.target(args, "badge")
	if err != nil {
		return err
	}
	card := strings.Join(args[2:], " ")
	if card == "" {
		if card, err = GetSimpleText(a.reader, "Badge number", a.out); err != nil {
			return err
		}
	}
	res, err := a.desk.EditBadge(ctx, rec.Source, rec.ID, card)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Badge %s assigned to %s\n", res.Record.CardNo, res.Record.FullName())
	return nil
}

func (a *App) Checkout(ctx context.Context, args []string) error {
	rec, err := a.target(args, "checkout")
	if err != nil {
		return err
	}
	surrendered, err := GetYesNo(a.reader, "Badge surrendered?", a.out)
	if err != nil {
		return err
	}
	approved, err := GetYesNo(a.reader, "Host approved?", a.out)
	if err != nil {
		return err
	}
	res, err := a.desk.Checkout(ctx, rec.Source, rec.ID, surrendered, approved)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s checked out\n", res.Record.FullName())
	return nil
}

func (a *App) Remove(ctx context.Context, args []string) error {
	rec, err := a.target(args, "remove")
	if err != nil {
		return err
	}
	reason, err := GetSimpleText(a.reader, "Reason (empty for the default)", a.out)
	if err != nil {
		return err
	}
	ok, err := GetYesNo(a.reader, fmt.Sprintf("Remove %s from the board?", rec.FullName()), a.out)
	if err != nil {
		return err
	}
	if _, err := a.desk.Remove(ctx, rec.Source, rec.ID, ok, reason); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s removed\n", rec.Key())
	return nil
}

func (a *App) writeOutput(name string, data []byte) (string, error) {
	dir, err := filex.EnsureDir(a.outDir)
	if err != nil {
		return "", err
	}
	return filex.WriteFileAtomic(dir, name, data)
}

func (a *App) Pass(ctx context.Context, args []string) error {
	rec, err := a.target(args, "pass")
	if err != nil {
		return err
	}
	html, err := a.desk.PassHTML(ctx, rec.Source, rec.ID)
	if err != nil {
		return err
	}
	path, err := a.writeOutput(fmt.Sprintf("pass_%s_%s.html", rec.Source, rec.ID), html)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Pass written to %s\n", path)
	return nil
}

func (a *App) Export(ctx context.Context, _ []string) error {
	rep, err := a.desk.ExportBoard(ctx)
	if err != nil {
		return err
	}
	if rep.Path == "" {
		if rep.Path, err = a.writeOutput(rep.FileName, rep.Data); err != nil {
			return err
		}
	}
	fmt.Fprintf(a.out, "Exported %d records to %s\n", rep.Count, rep.Path)
	if rep.ArchiveKey != "" {
		fmt.Fprintf(a.out, "Archived as %s\n", rep.ArchiveKey)
	}
	return nil
}

// readVisitor prompts for one walk-in. The phone is re-asked until valid.
func (a *App) readVisitor() (service.AdhocVisitor, error) {
	var v service.AdhocVisitor
	var err error
	text := func(dst *string, prompt string) {
		if err == nil {
			*dst, err = GetSimpleText(a.reader, prompt, a.out)
		}
	}
	text(&v.FirstName, "First name")
	text(&v.LastName, "Last name")
	text(&v.Email, "Email")
	text(&v.Company, "Company")
	text(&v.Host, "Host")
	text(&v.PurposeOfVisit, "Purpose of visit")
	text(&v.CountryCode, fmt.Sprintf("Country code (empty for %s)", phone.DefaultCode))
	if err != nil {
		return v, err
	}
	if v.CountryCode == "" {
		v.CountryCode = phone.DefaultCode
	}
	if _, ok := phone.Lookup(v.CountryCode); !ok {
		return v, fmt.Errorf("unsupported country code %q", v.CountryCode)
	}
	for {
		if v.Phone, err = GetSimpleText(a.reader, "Phone", a.out); err != nil {
			return v, err
		}
		r := phone.Validate(v.CountryCode, v.Phone)
		if r.Valid {
			break
		}
		fmt.Fprintln(a.out, r.Message)
	}
	if v.InTime, err = GetTime(a.reader, "In", a.loc, a.out); err != nil {
		return v, err
	}
	if v.OutTime, err = GetTime(a.reader, "Out", a.loc, a.out); err != nil {
		return v, err
	}
	return v, nil
}

func (a *App) Adhoc(ctx context.Context, _ []string) error {
	var visitors []service.AdhocVisitor
	for {
		v, err := a.readVisitor()
		if err != nil {
			return err
		}
		if problems := v.Validate(); len(problems) > 0 {
			for _, p := range problems {
				fmt.Fprintln(a.out, p)
			}
		} else {
			visitors = append(visitors, v)
		}
		more, err := GetYesNo(a.reader, "Add another visitor?", a.out)
		if err != nil {
			return err
		}
		if !more {
			break
		}
	}
	if len(visitors) == 0 {
		fmt.Fprintln(a.out, "Nothing to register")
		return nil
	}
	n, err := a.desk.RegisterAdhoc(ctx, visitors)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%d visitor(s) registered\n", n)
	return nil
}

func (a *App) Journal(ctx context.Context, args []string) error {
	q := journal.Query{Limit: 20}
	if len(args) > 0 {
		src, err := models.ParseSource(args[0])
		if err != nil {
			return err
		}
		q.Source = string(src)
	}
	if len(args) > 1 {
		q.RecordID = args[1]
	}
	entries, err := a.desk.Journal(ctx, q)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(a.out, "No actions recorded")
		return nil
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "AT\tRECORD\tACTION\tOUTCOME\tOPERATOR\tDETAIL")
	for _, e := range entries {
		detail := e.Reason
		if e.Error != "" {
			detail = e.Error
		}
		fmt.Fprintf(tw, "%s\t%s/%s\t%s\t%s\t%s\t%s\n",
			e.At.In(a.loc).Format("2006-01-02 15:04:05"), e.Source, e.RecordID,
			e.Action, e.Outcome, e.Operator, orDash(detail))
	}
	return tw.Flush()
}
