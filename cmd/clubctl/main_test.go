package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	membershipstore "github.com/dalemusser/clubhouse/internal/app/store/memberships"
	"github.com/urfave/cli/v2"
)

func run(t *testing.T, args ...string) error {
	t.Helper()
	return newApp().RunContext(context.Background(), append([]string{"clubctl", "--backend", "memory"}, args...))
}

func TestCommands_MemoryBackend(t *testing.T) {
	for _, args := range [][]string{
		{"schema"},
		{"seed"},
		{"counts", "--json"},
		{"reconcile"},
		{"reconcile", "--repair", "--json"},
	} {
		if err := run(t, args...); err != nil {
			t.Errorf("clubctl %v: %v", args, err)
		}
	}
}

func TestUnknownBackend(t *testing.T) {
	if err := newApp().RunContext(context.Background(), []string{"clubctl", "--backend", "sqlite", "counts"}); err == nil {
		t.Error("expected an error for an unknown backend")
	}
}

func writeCSV(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "students.csv")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return path
}

func TestImportStudents(t *testing.T) {
	good := writeCSV(t, "Name,Email,Student Number,Major\nAlice,alice@example.edu,S1,Math\nBob,bob@example.edu,,\n")
	if err := run(t, "import-students", good); err != nil {
		t.Errorf("import-students: %v", err)
	}
	if err := run(t, "import-students", "--dry-run", good); err != nil {
		t.Errorf("import-students --dry-run: %v", err)
	}

	bad := writeCSV(t, "Alice,not-an-email\n")
	assertExitCode(t, run(t, "import-students", "--dry-run", bad), 2)
	assertExitCode(t, run(t, "import-students", bad), 2)
	assertExitCode(t, run(t, "import-students"), 2)
}

func assertExitCode(t *testing.T, err error, want int) {
	t.Helper()
	var ec cli.ExitCoder
	if !errors.As(err, &ec) {
		t.Fatalf("error = %v, want exit code %d", err, want)
	}
	if ec.ExitCode() != want {
		t.Errorf("exit code = %d, want %d", ec.ExitCode(), want)
	}
}

func TestReportReconcile(t *testing.T) {
	drift := membershipstore.ReconcileReport{
		ClubsChecked: 1,
		Problems: []membershipstore.Problem{
			{Kind: membershipstore.DriftKinds[0], ClubID: "c1", StudentID: "s1"},
		},
	}

	tests := []struct {
		name     string
		rep      membershipstore.ReconcileReport
		repair   bool
		asJSON   bool
		wantCode int // 0 means no error
		want     string
	}{
		{"clean", membershipstore.ReconcileReport{ClubsChecked: 3}, false, false, 0, "checked 3 clubs"},
		{"drift", drift, false, false, 2, "club=c1 student=s1"},
		{"drift json", drift, false, true, 2, `"club_id": "c1"`},
		{"drift repaired", drift, true, false, 0, "repaired"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			err := reportReconcile(&out, tt.rep, tt.repair, tt.asJSON)
			if tt.wantCode == 0 {
				if err != nil {
					t.Fatalf("reportReconcile() error = %v", err)
				}
			} else {
				assertExitCode(t, err, tt.wantCode)
			}
			if !strings.Contains(out.String(), tt.want) {
				t.Errorf("output %q does not contain %q", out.String(), tt.want)
			}
		})
	}
}
