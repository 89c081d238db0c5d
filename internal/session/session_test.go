package session

import (
	"bytes"
	"io"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshivanandham/exasol-pow-client/internal/hashutil"
	"github.com/dshivanandham/exasol-pow-client/internal/identity"
)

// fakeConn is an in-memory transport.Conn: ReadChunk drains a fixed
// input byte stream and WriteAll appends to an output buffer, letting
// tests drive Session.Run deterministically without a real socket.
type fakeConn struct {
	in  *bytes.Reader
	out bytes.Buffer
}

func newFakeConn(input string) *fakeConn {
	return &fakeConn{in: bytes.NewReader([]byte(input))}
}

func (f *fakeConn) ReadChunk(buf []byte) (int, error) { return f.in.Read(buf) }
func (f *fakeConn) WriteAll(b []byte) error           { _, err := f.out.Write(b); return err }
func (f *fakeConn) CipherSuite() string               { return "TLS_FAKE" }
func (f *fakeConn) Close() error                      { return nil }

func testAnswers() identity.Answers {
	return identity.Answers{
		FullName:  "Deepak Shivanandham",
		MailCount: "1",
		Email:     "deepakshivanandham@hotmail.com",
		Skype:     "NA",
		Birthdate: "06.02.1991",
		Country:   "india",
		AddrCount: "2",
		AddrLine1: "25, GAJALAKSHMI NAGAR 1st CROSS STREET",
		AddrLine2: "CHROMPET,CHENNAI, TAMILNADU",
	}
}

func runLines(t *testing.T, input string) []string {
	t.Helper()
	conn := newFakeConn(input)
	sess := New(conn, testAnswers(), nil, nil)
	err := sess.Run()
	require.NoError(t, err)
	out := strings.TrimRight(conn.out.String(), "\n")
	if out == "" {
		return nil
	}
	return strings.Split(out, "\n")
}

func TestHandshake(t *testing.T) {
	lines := runLines(t, "HELO\nEND\n")
	require.GreaterOrEqual(t, len(lines), 1)
	assert.Equal(t, "EHLO", lines[0])
}

func TestPreAuthIdentityVerbRejected(t *testing.T) {
	lines := runLines(t, "NAME xyz\nEND\n")
	require.GreaterOrEqual(t, len(lines), 1)
	assert.Equal(t, "ERROR: NAME requires authentication", lines[0])
}

func TestUnknownVerb(t *testing.T) {
	lines := runLines(t, "FOO bar\nEND\n")
	require.GreaterOrEqual(t, len(lines), 1)
	assert.Equal(t, "ERROR Unknown command", lines[0])
}

func TestCloseOnEnd(t *testing.T) {
	conn := newFakeConn("END\n")
	sess := New(conn, testAnswers(), nil, nil)
	require.NoError(t, sess.Run())
	assert.Equal(t, StateClosed, sess.State())
	assert.Equal(t, "OK\n", conn.out.String())
}

func TestPOWThenAuthenticatedIdentityReply(t *testing.T) {
	conn := newFakeConn("POW T 1\nNAME Q\nEND\n")
	sess := New(conn, testAnswers(), nil, nil)
	require.NoError(t, sess.Run())

	lines := strings.Split(strings.TrimRight(conn.out.String(), "\n"), "\n")
	require.Len(t, lines, 3)

	// Line 1 is the nonce reply: decimal text of a uint64 satisfying
	// the difficulty predicate against authdata "T".
	nonce := lines[0]
	_, err := strconv.ParseUint(nonce, 10, 64)
	require.NoError(t, err)
	digest := hashutil.Sum([]byte("T" + nonce))
	assert.True(t, hashutil.LeadingZeroNibbles(digest[:], 1))

	// Line 2 is the NAME reply: "<hex_sha1(authdata||challenge)> <name>".
	wantHash := hashutil.HexString("T" + "Q")
	assert.Equal(t, wantHash+" Deepak Shivanandham", lines[1])

	assert.Equal(t, "OK", lines[2])
}

func TestPOWInsufficientArguments(t *testing.T) {
	lines := runLines(t, "POW onlyone\nEND\n")
	assert.Equal(t, "POW_ERROR: Insufficient arguments", lines[0])
}

func TestPOWInvalidDifficulty(t *testing.T) {
	lines := runLines(t, "POW abc 41\nEND\n")
	assert.Equal(t, "POW_ERROR: Invalid difficulty", lines[0])
}

func TestEmptyLinesAreIgnored(t *testing.T) {
	lines := runLines(t, "\n\nHELO\n\nEND\n")
	assert.Equal(t, []string{"EHLO", "OK"}, lines)
}

func TestIdempotentRepliesForSameChallenge(t *testing.T) {
	conn := newFakeConn("POW T 1\nNAME Q\nNAME Q\nEND\n")
	sess := New(conn, testAnswers(), nil, nil)
	require.NoError(t, sess.Run())

	lines := strings.Split(strings.TrimRight(conn.out.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, lines[1], lines[2])
}

// dribbleConn returns at most 2 bytes per ReadChunk call, exercising
// readLine's accumulation loop across many partial reads instead of
// one chunk containing the whole line.
type dribbleConn struct {
	data []byte
	out  bytes.Buffer
}

func (d *dribbleConn) ReadChunk(buf []byte) (int, error) {
	if len(d.data) == 0 {
		return 0, io.EOF
	}
	n := 2
	if n > len(d.data) {
		n = len(d.data)
	}
	n = copy(buf, d.data[:n])
	d.data = d.data[n:]
	return n, nil
}
func (d *dribbleConn) WriteAll(b []byte) error { _, err := d.out.Write(b); return err }
func (d *dribbleConn) CipherSuite() string     { return "TLS_FAKE" }
func (d *dribbleConn) Close() error            { return nil }

func TestReadLineHandlesChunkedInput(t *testing.T) {
	conn := &dribbleConn{data: []byte("HELO\nEND\n")}
	sess := New(conn, testAnswers(), nil, nil)
	require.NoError(t, sess.Run())
	assert.Equal(t, "EHLO\nOK\n", conn.out.String())
}

func TestVerifyHashHelper(t *testing.T) {
	assert.True(t, verifyHash("T", "Q", hashutil.HexString("TQ")))
	assert.False(t, verifyHash("T", "Q", hashutil.HexString("Tq")))
}
