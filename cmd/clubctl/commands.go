package main

import (
	"fmt"
	"io"
	"os"
	"sort"

	membershipstore "github.com/dalemusser/clubhouse/internal/app/store/memberships"
	metricsstore "github.com/dalemusser/clubhouse/internal/app/store/metrics"
	studentstore "github.com/dalemusser/clubhouse/internal/app/store/students"
	"github.com/dalemusser/clubhouse/internal/app/system/csvutil"
	"github.com/urfave/cli/v2"
)

// schemaCommand only needs open: it already ensures validators and indexes.
func schemaCommand(c *cli.Context) error {
	e, err := open(c)
	if err != nil {
		return err
	}
	defer e.close()
	fmt.Println("schema up to date")
	return nil
}

func seedCommand(c *cli.Context) error {
	e, err := open(c)
	if err != nil {
		return err
	}
	defer e.close()

	res, err := e.svc.Seeder.Run(c.Context)
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	fmt.Printf("Sample data created: %d students, %d clubs, %d memberships\n",
		res.StudentsCreated, res.ClubsCreated, res.MembershipsCreated)
	return nil
}

// importStudentsCommand refuses to write anything if any row is invalid.
func importStudentsCommand(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return cli.Exit("import-students: FILE is required", 2)
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	parsed, err := csvutil.ParseStudentCSV(f, csvutil.ParseOptions{MaxRows: csvutil.MaxRows})
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	if parsed.HasErrors() {
		return cli.Exit(parsed.Summary(20), 2)
	}
	if c.Bool("dry-run") {
		fmt.Printf("%d rows ok\n", len(parsed.Rows))
		return nil
	}

	e, err := open(c)
	if err != nil {
		return err
	}
	defer e.close()

	res, err := e.svc.Students.Import(c.Context, studentInputs(parsed.Rows))
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}
	fmt.Printf("created %d, skipped %d existing\n", res.Created, res.Skipped)
	for _, msg := range res.Failed {
		fmt.Println("  failed:", msg)
	}
	return nil
}

func studentInputs(rows []csvutil.StudentRow) []studentstore.Input {
	out := make([]studentstore.Input, len(rows))
	for i, r := range rows {
		out[i] = studentstore.Input{
			Name:          r.Name,
			Email:         r.Email,
			StudentNumber: r.StudentNumber,
			Major:         r.Major,
		}
	}
	return out
}

// reconcileCommand exits non-zero when drift remains unrepaired.
func reconcileCommand(c *cli.Context) error {
	e, err := open(c)
	if err != nil {
		return err
	}
	defer e.close()

	repair := c.Bool("repair")
	rep, err := e.svc.Members.Reconcile(c.Context, repair)
	if err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}
	return reportReconcile(os.Stdout, rep, repair, c.Bool("json"))
}

// reportReconcile prints rep and returns exit code 2 when drift was found
// and left in place.
func reportReconcile(w io.Writer, rep membershipstore.ReconcileReport, repair, asJSON bool) error {
	if asJSON {
		if err := writeJSON(w, rep); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(w, "checked %d clubs, %d students\n", rep.ClubsChecked, rep.StudentsChecked)
		byKind := rep.ByKind()
		kinds := make([]string, 0, len(byKind))
		for k := range byKind {
			kinds = append(kinds, k)
		}
		sort.Strings(kinds)
		for _, k := range kinds {
			fmt.Fprintf(w, "  %-28s %d\n", k, byKind[k])
		}
		for _, p := range rep.Problems {
			fmt.Fprintf(w, "  - %s club=%s student=%s %s\n", p.Kind, p.ClubID, p.StudentID, p.Detail)
		}
		if repair {
			fmt.Fprintf(w, "repaired %d clubs/students\n", rep.Repaired)
		}
	}

	if !rep.Clean() && !repair {
		return cli.Exit("drift found; rerun with --repair", 2)
	}
	return nil
}

func countsCommand(c *cli.Context) error {
	e, err := open(c)
	if err != nil {
		return err
	}
	defer e.close()

	counts := metricsstore.FetchCounts(c.Context, e.deps.Store)
	if c.Bool("json") {
		return printJSON(counts)
	}
	fmt.Printf("clubs:       %d\nstudents:    %d\nmemberships: %d\n", counts.Clubs, counts.Students, counts.Memberships)
	return nil
}
