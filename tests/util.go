package testutil

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/schoolrecords/sf10/core"
	"github.com/schoolrecords/sf10/core/codec"
	"github.com/schoolrecords/sf10/core/grade"
	"github.com/schoolrecords/sf10/core/user"
)

const CodecSecret = "test-score-secret"

// NewValidator returns a validator with every custom validation & translation registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	enLocale := en.New()
	translator, _ := ut.New(enLocale, enLocale).GetTranslator("en")

	validate := validator.New()
	core.InitValidators(validate, translator)
	grade.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	return validate, translator
}

func NewCodec(t *testing.T) codec.Codec {
	c, err := codec.New(CodecSecret, new(LoggerMock))
	if err != nil {
		t.Fatalf("codec.New() failed: %v", err)
	}
	return c
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		ID:        uname,
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("createUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}

// CreateTeacher creates an active adviser of the given class.
func CreateTeacher(t *testing.T, repo user.Repository, name, uname, pwd, gradeLevel, section string) user.User {
	usr := user.User{
		ID:         uname,
		Name:       name,
		Username:   uname,
		Email:      uname + "@school.test",
		Roles:      []string{user.RoleTeacher},
		IsActive:   true,
		GradeLevel: gradeLevel,
		Section:    section,
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}
	if err := usr.SetPassword(pwd); err != nil {
		t.Fatalf("createTeacher() failed: %v", err)
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("createTeacher() failed: %v", err)
	}
	return usr
}

type LogEntry struct {
	Level string
	Msg   string
	Args  []interface{}
}

// LoggerMock records log entries instead of reporting them.
type LoggerMock struct {
	mu      sync.Mutex
	Entries []LogEntry
}

var _ core.Logger = (*LoggerMock)(nil)

func (l *LoggerMock) log(level, msg string, args []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Entries = append(l.Entries, LogEntry{Level: level, Msg: msg, Args: args})
}

func (l *LoggerMock) Debug(msg string, args ...interface{}) { l.log("debug", msg, args) }
func (l *LoggerMock) Info(msg string, args ...interface{})  { l.log("info", msg, args) }
func (l *LoggerMock) Warn(msg string, args ...interface{})  { l.log("warning", msg, args) }
func (l *LoggerMock) Error(msg string, args ...interface{}) { l.log("error", msg, args) }
func (l *LoggerMock) Fatal(msg string, args ...interface{}) { l.log("critical", msg, args) }

// Levels returns the levels logged so far.
func (l *LoggerMock) Levels() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	levels := make([]string, len(l.Entries))
	for i, e := range l.Entries {
		levels[i] = e.Level
	}
	return levels
}

// SheetWriterMock keeps the sheets it is asked to write.
type SheetWriterMock struct {
	Sheets []core.Sheet
}

func (m *SheetWriterMock) WriteSheets(_ io.Writer, sheets ...core.Sheet) error {
	m.Sheets = append(m.Sheets, sheets...)
	return nil
}
