// Package session implements the line-oriented challenge protocol
// state machine described in spec.md §4.3: it reads whitespace-
// tokenized, LF-terminated commands off a transport.Conn, dispatches
// by verb, drives the PoW solver on POW, and answers identity verbs
// with hex_sha1(authdata||challenge)-tagged replies.
package session

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/dshivanandham/exasol-pow-client/internal/hashutil"
	"github.com/dshivanandham/exasol-pow-client/internal/identity"
	"github.com/dshivanandham/exasol-pow-client/internal/powsolver"
	"github.com/dshivanandham/exasol-pow-client/internal/transport"
)

// State is one of the three session states from spec.md §4.3.
type State int

const (
	StateUnauthenticated State = iota
	StateAuthenticated
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateAuthenticated:
		return "authenticated"
	case StateClosed:
		return "closed"
	default:
		return "unauthenticated"
	}
}

// readChunkSize is the per-recv buffer size named in spec.md §4.4.
const readChunkSize = 4096

// Tracer is the subset of *tracing.Tracer the session needs, matching
// the teacher's RecordAction-per-milestone style
// (powlib.go's Mine/Close call sites).
type Tracer interface {
	RecordAction(interface{})
}

// nopTracer discards every action; used when no tracer is configured.
type nopTracer struct{}

func (nopTracer) RecordAction(interface{}) {}

// Session owns one connection's worth of protocol state: the active
// authdata, the authenticated flag, and the transport handle.
type Session struct {
	conn      transport.Conn
	answers   identity.Answers
	hashCache *identity.HashCache
	solver    *powsolver.Solver
	tracer    Tracer
	log       *log.Logger

	state    State
	authdata string

	pending []byte // bytes read but not yet split into a line
}

// New builds a Session ready to Run over conn, answering identity
// verbs from answers. tracer and logger may be nil, in which case a
// no-op tracer and the standard logger are used.
func New(conn transport.Conn, answers identity.Answers, tracer Tracer, logger *log.Logger) *Session {
	if tracer == nil {
		tracer = nopTracer{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Session{
		conn:      conn,
		answers:   answers,
		hashCache: identity.NewHashCache(),
		solver:    &powsolver.Solver{},
		tracer:    tracer,
		log:       logger,
		state:     StateUnauthenticated,
	}
}

// State reports the session's current state.
func (s *Session) State() State {
	return s.state
}

// Run drives the session to completion: reads commands line by line,
// dispatches and replies, until END, ERROR, a fatal error, or
// transport EOF closes it. Run never returns a "normal" error for a
// clean close — only for genuinely fatal conditions (HashFailure,
// Exhausted), and it always leaves the transport closed.
func (s *Session) Run() error {
	defer s.conn.Close()

	for s.state != StateClosed {
		line, err := s.readLine()
		if err != nil {
			s.closeWithReason("transport closed")
			return nil
		}

		if len(line) == 0 {
			s.log.Println("empty line ignored")
			continue // empty lines are ignored (logged and skipped)
		}

		reply, fatalErr := s.handleLine(string(line))
		if reply != "" {
			if writeErr := s.conn.WriteAll([]byte(reply)); writeErr != nil {
				s.closeWithReason("write failed")
				return nil
			}
		}
		if fatalErr != nil {
			s.closeWithReason(fatalErr.Error())
			return fatalErr
		}
	}
	return nil
}

var errEOF = errors.New("session: transport closed")

// readLine blocks until a full LF-terminated line is available (per
// spec.md §4.3's blocking semantics) or the transport closes, reading
// in chunks of at most readChunkSize bytes and performing its own line
// splitting — the transport provides no framing.
func (s *Session) readLine() ([]byte, error) {
	for {
		if idx := bytes.IndexByte(s.pending, '\n'); idx >= 0 {
			line := s.pending[:idx]
			s.pending = s.pending[idx+1:]
			return trimLine(line), nil
		}

		buf := make([]byte, readChunkSize)
		n, err := s.conn.ReadChunk(buf)
		if n > 0 {
			s.pending = append(s.pending, buf[:n]...)
		}
		if err != nil || n == 0 {
			if len(s.pending) > 0 {
				line := s.pending
				s.pending = nil
				return trimLine(line), nil
			}
			return nil, errEOF
		}
	}
}

// trimLine strips trailing CR/LF/space/tab, matching spec.md §4.3's
// wire format.
func trimLine(b []byte) []byte {
	return []byte(strings.TrimRight(string(b), " \t\r\n"))
}

// handleLine dispatches one already-trimmed command line, returning
// the reply to write (possibly empty) and a non-nil error only for
// fatal conditions that should close the session after the reply (if
// any) is flushed.
func (s *Session) handleLine(line string) (reply string, fatal error) {
	args := strings.Fields(line)
	if len(args) == 0 {
		return "", nil
	}

	verb := args[0]
	switch verb {
	case "HELO":
		return "EHLO\n", nil

	case "POW":
		return s.handlePOW(args)

	case "END":
		s.state = StateClosed
		s.tracer.RecordAction(ActionSessionClosed{Reason: "END"})
		return "OK\n", nil

	case "ERROR":
		s.log.Println("ERROR from peer:", strings.Join(args[1:], " "))
		s.state = StateClosed
		s.tracer.RecordAction(ActionSessionClosed{Reason: "ERROR"})
		return "", nil

	case "NAME":
		return s.identityReply(verb, args, s.answers.FullName)
	case "MAILNUM":
		return s.identityReply(verb, args, s.answers.MailCount)
	case "MAIL1":
		return s.identityReply(verb, args, s.answers.Email)
	case "SKYPE":
		return s.identityReply(verb, args, s.answers.Skype)
	case "BIRTHDATE":
		return s.identityReply(verb, args, s.answers.Birthdate)
	case "COUNTRY":
		return s.identityReply(verb, args, s.answers.Country)
	case "ADDRNUM":
		return s.identityReply(verb, args, s.answers.AddrCount)
	case "ADDRLINE1":
		return s.identityReply(verb, args, s.answers.AddrLine1)
	case "ADDRLINE2":
		return s.identityReply(verb, args, s.answers.AddrLine2)

	default:
		return "ERROR Unknown command\n", nil
	}
}

// handlePOW implements spec.md §4.3's POW row: validate arg count,
// run the solver, and transition to Authenticated on success.
func (s *Session) handlePOW(args []string) (string, error) {
	if len(args) < 3 {
		return "POW_ERROR: Insufficient arguments\n", nil
	}

	authdata := args[1]
	difficulty, err := strconv.Atoi(args[2])
	if err != nil {
		s.log.Println("malformed POW difficulty:", args[2])
		return "", nil // MalformedCommand: logged, no reply, session continues
	}

	s.tracer.RecordAction(ActionPOWBegin{Authdata: authdata, Difficulty: difficulty})

	nonce, err := s.solver.Solve([]byte(authdata), difficulty)
	switch {
	case errors.Is(err, powsolver.ErrInvalidDifficulty):
		return "POW_ERROR: Invalid difficulty\n", nil
	case errors.Is(err, powsolver.ErrExhausted):
		return "", fmt.Errorf("powsolver: exhausted nonce space for difficulty %d", difficulty)
	case errors.Is(err, powsolver.ErrHashFailure):
		return "", fmt.Errorf("powsolver: hash failure: %w", err)
	case err != nil:
		return "", err
	}

	s.authdata = authdata
	s.state = StateAuthenticated
	s.tracer.RecordAction(ActionPOWSuccess{Authdata: authdata, Nonce: nonce})

	return nonce + "\n", nil
}

// identityReply implements the authenticated-response rule common to
// every identity verb: require Authenticated and a challenge token,
// then reply "<hex_sha1(authdata||challenge)> <value>\n".
func (s *Session) identityReply(verb string, args []string, value string) (string, error) {
	if s.state != StateAuthenticated || len(args) < 2 {
		return fmt.Sprintf("ERROR: %s requires authentication\n", verb), nil
	}
	challenge := args[1]
	hash := s.hashCache.Hash(s.authdata, challenge)
	s.tracer.RecordAction(ActionIdentityReply{Verb: verb, Challenge: challenge})
	return hash + " " + value + "\n", nil
}

func (s *Session) closeWithReason(reason string) {
	if s.state != StateClosed {
		s.state = StateClosed
		s.tracer.RecordAction(ActionSessionClosed{Reason: reason})
	}
}

// verifyHash is a small helper exercised by tests to confirm a reply's
// hash prefix matches hex_sha1(authdata||challenge) independent of the
// session's internal cache.
func verifyHash(authdata, challenge, prefix string) bool {
	return hashutil.HexString(authdata+challenge) == prefix
}
