package e2e_test

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runCLI runs the CLI from source with stdin and returns its stdout. It
// fails the test on a non-zero exit unless wantErr is set.
func runCLI(t testing.TB, dir, stdin string, wantErr bool, args ...string) (string, string) {
	t.Helper()
	cmd := exec.Command("go", append([]string{"run", "../../cmd/jsondoc"}, args...)...)
	cmd.Stdin = strings.NewReader(stdin)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	if wantErr {
		require.Error(t, err, "expected failure, stdout: %s", stdout.String())
	} else {
		require.NoError(t, err, "CLI command failed: %s", stderr.String())
	}
	return stdout.String(), stderr.String()
}

const service = `{
	"id": 12345,
	"uuid": "550e8400-e29b-41d4-a716-446655440000",
	"created_at": "2023-05-20T14:56:23Z",
	"updated_at": null,
	"config": {
		"enabled": true,
		"timeout_seconds": 30,
		"features": ["logging", "metrics", "alerting"],
		"rate_limits": {"per_second": 100, "per_minute": 1000, "burst": 150}
	},
	"users": [
		{"id": 1, "name": "Alice", "roles": ["admin", "user"], "metadata": {"last_login": "2023-05-19T10:30:00Z", "login_count": 42}},
		{"id": 2, "name": "Bob", "roles": ["user"], "metadata": {"last_login": "2023-05-18T09:15:00Z", "login_count": 17}}
	],
	"stats": {"requests": 1234567, "success_rate": 0.9999, "response_times": [0.045, 0.067, 0.032, 0.051]},
	"active": true
}`

// TestEndToEnd_FormatRoundTrip checks that pretty and compact output both
// read back to the same document and that formatting is idempotent.
func TestEndToEnd_FormatRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping end-to-end test in short mode")
	}
	dir := t.TempDir()

	pretty, _ := runCLI(t, dir, service, false, "--indent", "2", "--sort-keys", "fmt")
	again, _ := runCLI(t, dir, pretty, false, "--indent", "2", "--sort-keys", "fmt")
	assert.Equal(t, pretty, again)

	compact, _ := runCLI(t, dir, pretty, false, "fmt")
	assert.NotContains(t, strings.TrimSpace(compact), "\n")

	patch, _ := runCLI(t, dir, compact, false, "diff", writeFile(t, dir, "service.json", service))
	assert.Equal(t, "[]\n", patch)
}

// TestEndToEnd_InferValidateStore drives a document from YAML through
// schema inference and validation into the store.
func TestEndToEnd_InferValidateStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping end-to-end test in short mode")
	}
	dir := t.TempDir()

	yamlPath := writeFile(t, dir, "users.yaml", `
- id: 1
  name: Alice
  email: alice@example.com
  roles: [admin, user]
- id: 2
  name: Bob
  email: bob@example.com
  roles: [user]
`)
	users, _ := runCLI(t, dir, "", false, "convert", yamlPath)
	usersPath := writeFile(t, dir, "users.json", users)

	schema, _ := runCLI(t, dir, "", false, "infer", usersPath)
	schemaPath := writeFile(t, dir, "schema.json", schema)
	assert.Contains(t, schema, `"format":"email"`)

	out, _ := runCLI(t, dir, users, false, "validate", schemaPath)
	assert.Equal(t, "valid\n", out)
	_, stderr := runCLI(t, dir, `[{"id": "three", "name": "C", "email": "c@example.com", "roles": []}]`, true, "validate", schemaPath)
	assert.Contains(t, stderr, "Validation failed")

	db := filepath.Join(dir, "users.db")
	for key, name := range map[string]string{"alice": "Alice", "bob": "Bob"} {
		doc, _ := runCLI(t, dir, users, false, "query", "--first", fmt.Sprintf("$[?(@.name == '%s')]", name))
		out, _ := runCLI(t, dir, doc, false, "--db", db, "--index", "$.roles[*]", "store", "put", "--key", key)
		assert.Equal(t, key+"\n", out)
	}

	admins, _ := runCLI(t, dir, "", false, "--db", db, "--index", "$.roles[*]", "store", "query", "$.roles[*]", "==", "admin")
	assert.Equal(t, "alice\n", admins)
	everyone, _ := runCLI(t, dir, "", false, "--db", db, "--index", "$.roles[*]", "store", "query", "$.roles[*]", "==", "user")
	assert.Equal(t, "alice\nbob\n", everyone)
}

// TestEndToEnd_GoTypes generates Go types for a document and checks that
// they compile.
func TestEndToEnd_GoTypes(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping end-to-end test in short mode")
	}
	dir := t.TempDir()

	code, _ := runCLI(t, dir, service, false, "infer", "--go", "main", "--root-name", "Service")
	assert.Contains(t, code, "type Service struct")
	assert.Regexp(t, `CreatedAt\s+time\.Time\s+\x60json:"created_at"\x60`, code)
	assert.Regexp(t, `Uuid\s+uuid\.UUID\s+\x60json:"uuid"\x60`, code)
	assert.Regexp(t, `Users\s+\[\]User\s+\x60json:"users"\x60`, code)
	assert.Contains(t, code, "type RateLimits struct")

	// uuid needs a module to resolve; the stdlib-only check drops it.
	verify := strings.NewReplacer(
		"\t\"github.com/google/uuid\"\n", "",
		"uuid.UUID", "string",
	).Replace(code) + "\nfunc main() { _ = Service{} }\n"
	goFile := writeFile(t, dir, "verify_compile.go", verify)
	out, err := exec.Command("go", "build", "-o", os.DevNull, goFile).CombinedOutput()
	require.NoError(t, err, "generated code does not compile: %s\n%s", out, verify)
}

func TestEndToEnd_Errors(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping end-to-end test in short mode")
	}
	dir := t.TempDir()

	tests := []struct {
		name  string
		stdin string
		args  []string
		want  string
	}{
		{"syntax", `{"a": tru}`, []string{"fmt"}, "JSON syntax error"},
		{"grammar", `{"a": }`, []string{"fmt"}, "JSON parsing error"},
		{"too deep", strings.Repeat("[", 600) + strings.Repeat("]", 600), []string{"fmt"}, "JSON parsing error"},
		{"duplicate keys rejected", `{"a": 1, "a": 2}`, []string{"--config", writeFile(t, dir, "strict.yml", "parse:\n  duplicate_keys: reject\n"), "fmt"}, "JSON parsing error"},
		{"bad path", `{}`, []string{"query", "$..["}, "Compile error"},
		{"missing file", "", []string{"fmt", filepath.Join(dir, "missing.json")}, "Input error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, stderr := runCLI(t, dir, tt.stdin, true, tt.args...)
			assert.Contains(t, stderr, tt.want)
		})
	}
}

func writeFile(t testing.TB, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	return p
}
