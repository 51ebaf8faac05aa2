package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	echoapi "github.com/schoolrecords/sf10/apps/api/echo"
	"github.com/schoolrecords/sf10/core"
	"github.com/schoolrecords/sf10/core/codec"
	"github.com/schoolrecords/sf10/core/grade"
	"github.com/schoolrecords/sf10/core/printreq"
	"github.com/schoolrecords/sf10/core/report"
	"github.com/schoolrecords/sf10/core/student"
	"github.com/schoolrecords/sf10/core/user"
	emailsvc "github.com/schoolrecords/sf10/services/email"
	locksvc "github.com/schoolrecords/sf10/services/lock"
	logsvc "github.com/schoolrecords/sf10/services/logger"
	rendersvc "github.com/schoolrecords/sf10/services/render"
	xlsxsvc "github.com/schoolrecords/sf10/services/xlsx"
	"github.com/schoolrecords/sf10/storage/database"
	"github.com/schoolrecords/sf10/storage/database/dummy"
	"github.com/schoolrecords/sf10/storage/database/sqlx"
)

const engineDummy = "dummy"

type repositories struct {
	users    user.Repository
	students student.Repository
	grades   grade.Repository
	requests printreq.Repository
}

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)
	defer logger.Close()

	dbStdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	dbLogger := logsvc.NewRollbarLogger(dbStdLogger, conf)
	dbLogger.Enable(!conf.Debug)

	// set up DB & repos
	repos, closeDB, err := setUpRepositories(conf, dbStdLogger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = closeDB(); err != nil {
			dbLogger.Error("Failed to close", err)
		}
	}()

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	grade.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	core.ParseEmailTemplates(conf, logger)

	cdc, err := codec.New(conf.Crypto.ScoreSecret, logger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up score codec: %v", err), err)
	}

	format, ok := report.PageFormatByName(conf.Report.PageFormat)
	if !ok {
		logger.Fatal(fmt.Sprintf("unknown report page format %q", conf.Report.PageFormat))
	}

	guard, closeGuard := setUpGuard(conf, logger)
	defer closeGuard()

	// set up services
	mailSvc := emailsvc.NewService(conf, logger)
	sheets := xlsxsvc.NewWriter()
	school := grade.School{
		Name:     conf.School.Name,
		ID:       conf.School.ID,
		District: conf.School.District,
		Division: conf.School.Division,
		Region:   conf.School.Region,
	}

	usrSvc := user.NewService(repos.users, sheets, validate)
	stdSvc := student.NewService(repos.students, sheets, validate)
	grdSvc := grade.NewService(repos.grades, cdc, validate, school)
	exporter := report.NewExporter(
		rendersvc.NewRasterizer(conf.Report.DPI),
		rendersvc.NewPDFAssembler("SF10-ES", conf.School.Name),
		float64(conf.Report.Scale),
	)
	rptSvc := report.NewService(
		stdSvc,
		grdSvc,
		exporter,
		guard,
		report.School{School: school, Principal: conf.School.Principal},
		format,
		logger,
	)
	reqSvc := printreq.NewService(repos.requests, stdSvc, mailSvc, sheets, validate, conf)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(&echoapi.Options{
		Conf:        conf,
		Logger:      logger,
		Validate:    validate,
		Translator:  translator,
		UserSvc:     usrSvc,
		StudentSvc:  stdSvc,
		GradeSvc:    grdSvc,
		ReportSvc:   rptSvc,
		PrintReqSvc: reqSvc,
	})

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Error(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

// setUpRepositories opens the configured database. The dummy engine keeps everything in memory.
func setUpRepositories(conf *core.Config, logger *log.Logger) (repositories, func() error, error) {
	if conf.Database.Engine == engineDummy {
		db, err := dummydb.Open()
		if err != nil {
			return repositories{}, nil, err
		}
		return repositories{
			users:    dummydb.NewUserRepository(db),
			students: dummydb.NewStudentRepository(db),
			grades:   dummydb.NewGradeRepository(db),
			requests: dummydb.NewPrintRequestRepository(db),
		}, func() error { return nil }, nil
	}

	db, err := setUpDB(conf, logger)
	if err != nil {
		return repositories{}, nil, err
	}
	return repositories{
		users:    sqlxrepos.NewUserRepository(db),
		students: sqlxrepos.NewStudentRepository(db),
		grades:   sqlxrepos.NewGradeRepository(db),
		requests: sqlxrepos.NewPrintRequestRepository(db),
	}, db.Close, nil
}

func setUpDB(conf *core.Config, logger *log.Logger) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, errors.Wrap(err, "creating database")
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}

	if err = database.Migrate(db.DB, logger); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "migrating database")
	}
	return db, nil
}

// setUpGuard shares the SF10 render guard through redis, or keeps it in process when redis is not configured.
func setUpGuard(conf *core.Config, logger core.Logger) (report.Guard, func()) {
	if conf.Redis.Addr == "" {
		logger.Warn("redis not configured: the SF10 render guard only covers this process")
		return locksvc.NewMemoryGuard(), func() {}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	client, err := locksvc.NewRedisClient(ctx, conf.Redis)
	if err != nil {
		logger.Fatal(fmt.Sprintf("connecting to redis: %v", err), err)
	}
	return locksvc.NewRedisGuard(client, conf.Redis.LockTTL), func() {
		if err := client.Close(); err != nil {
			logger.Error("closing redis client", err)
		}
	}
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}
