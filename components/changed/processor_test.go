package changed

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/benthosdev/benthos/v4/public/service"
	"github.com/shono-io/arangosh/core"
	"github.com/shono-io/arangosh/internal/testutil"
	"github.com/shono-io/arangosh/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/benthosdev/benthos/v4/public/components/pure"
)

const storedJane = "/_api/document/users/jane"

func TestProcInit(t *testing.T) {
	fnd := false
	service.GlobalEnvironment().WalkProcessors(func(name string, config *service.ConfigView) {
		if name == "arangodb_changed" {
			fnd = true
		}
	})

	assert.True(t, fnd)
}

func TestProcess(t *testing.T) {
	t.Run("should report a new document", reportNew)
	t.Run("should report an unchanged document", reportUnchanged)
	t.Run("should report a changed document", reportChanged)
	t.Run("should surface failing outcome processors", surfaceOutcomeErrors)
}

func newTestProc(t *testing.T, tr *testutil.MockTransport, extra string) *proc {
	t.Helper()

	conf, err := config().ParseYAML(strings.TrimSpace(`
arangodb:
  urls: [ "http://localhost:8529" ]
collection: users
key: ${! this.name }
`)+"\n"+strings.TrimSpace(extra), service.GlobalEnvironment())
	require.NoError(t, err)

	prc, err := procFromConfig(conf, session.New(tr))
	require.NoError(t, err)
	return prc
}

func process(t *testing.T, prc *proc, payload map[string]any) map[string]any {
	t.Helper()

	tCtx, done := context.WithTimeout(context.Background(), time.Second)
	defer done()

	msg := service.NewMessage(nil)
	msg.SetStructuredMut(payload)

	batch, err := prc.Process(tCtx, msg)
	require.NoError(t, err)
	require.Len(t, batch, 1)

	res, err := batch[0].AsStructured()
	require.NoError(t, err)
	return res.(map[string]any)
}

func reportNew(t *testing.T) {
	tr := testutil.NewMockTransport("_system")
	tr.Expect(http.MethodGet, storedJane, testutil.ErrorEnvelope(404, core.ErrorNumDocumentNotFound, "document not found"))

	res := process(t, newTestProc(t, tr, ""), map[string]any{"name": "jane", "age": float64(40)})
	assert.Equal(t, false, res["found"])
	assert.Equal(t, false, res["changed"])
}

func reportUnchanged(t *testing.T) {
	tr := testutil.NewMockTransport("_system")
	tr.Expect(http.MethodGet, storedJane, map[string]any{"_id": "users/jane", "_key": "jane", "_rev": "_a", "name": "jane", "age": float64(40)})

	res := process(t, newTestProc(t, tr, ""), map[string]any{"name": "jane", "age": float64(40)})
	assert.Equal(t, true, res["found"])
	assert.Equal(t, false, res["changed"])
	assert.Empty(t, res["changelog"])
}

func reportChanged(t *testing.T) {
	tr := testutil.NewMockTransport("_system")
	tr.Expect(http.MethodGet, storedJane, map[string]any{"_id": "users/jane", "_key": "jane", "name": "jane", "age": float64(40)})

	res := process(t, newTestProc(t, tr, ""), map[string]any{"name": "jane", "age": float64(41)})
	assert.Equal(t, true, res["found"])
	assert.Equal(t, true, res["changed"])
	assert.Equal(t, []map[string]any{
		{"Type": "update", "Path": []string{"age"}, "From": float64(40), "To": float64(41)},
	}, res["changelog"])
}

func surfaceOutcomeErrors(t *testing.T) {
	tCtx, done := context.WithTimeout(context.Background(), time.Second)
	defer done()

	tr := testutil.NewMockTransport("_system")
	tr.Expect(http.MethodGet, storedJane, map[string]any{"_id": "users/jane", "name": "jane", "age": float64(40)})
	prc := newTestProc(t, tr, `
when_changed:
  - mapping: 'root = throw("rejected")'
`)

	msg := service.NewMessage(nil)
	msg.SetStructuredMut(map[string]any{"name": "jane", "age": float64(41)})

	_, err := prc.Process(tCtx, msg)
	assert.ErrorContains(t, err, "rejected")
	require.NoError(t, prc.Close(tCtx))
}
