package app

import (
	"context"
	"fmt"
	"html/template"
	"net/http"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/phenrril/expressbi/internal/adapters/export/xlsx"
	"github.com/phenrril/expressbi/internal/adapters/firebase"
	"github.com/phenrril/expressbi/internal/adapters/httpserver"
	repo "github.com/phenrril/expressbi/internal/adapters/repo/postgres"
	"github.com/phenrril/expressbi/internal/adapters/ws"
	"github.com/phenrril/expressbi/internal/config"
	"github.com/phenrril/expressbi/internal/domain"
	"github.com/phenrril/expressbi/internal/usecase"
	"github.com/phenrril/expressbi/internal/views"
)

type App struct {
	Config    config.Config
	Store     domain.CustomerStore
	Tmpl      *template.Template
	Customers *usecase.CustomerUC
	Live      *usecase.LiveList
	Hub       *ws.Hub
}

// OpenStore builds the store binding selected by STORE_DRIVER.
func OpenStore(cfg config.Config) (domain.CustomerStore, error) {
	switch cfg.StoreDriver {
	case config.DriverFirebase:
		c, err := firebase.New(cfg.Firebase)
		if err != nil {
			return nil, err
		}
		return c, nil
	case config.DriverPostgres:
		return openGorm(postgres.Open(cfg.DSN), 0)
	case config.DriverSQLite:
		// sqlite no admite una escritura mientras otra conexión lee
		return openGorm(sqlite.Open(cfg.SQLitePath), 1)
	default:
		return nil, fmt.Errorf("STORE_DRIVER desconocido: %q", cfg.StoreDriver)
	}
}

func openGorm(d gorm.Dialector, maxConns int) (domain.CustomerStore, error) {
	db, err := gorm.Open(d, &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
	if err != nil {
		return nil, err
	}
	if maxConns > 0 {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(maxConns)
	}
	r := repo.NewCustomerRepo(db)
	if err := r.Migrate(); err != nil {
		return nil, err
	}
	return r, nil
}

func NewApp(cfg config.Config, store domain.CustomerStore) (*App, error) {
	a := &App{Config: cfg, Store: store}
	a.Customers = &usecase.CustomerUC{Store: store, Encoder: xlsx.Encoder{}}
	a.Live = usecase.NewLiveList(store)
	a.Hub = ws.NewHub()

	a.Live.OnChange(func(list []domain.Customer) {
		a.Hub.BroadcastEvent(ws.EventSnapshot, list)
	})

	var tmpl *template.Template
	var err error
	if cfg.IsDev() {
		// en desarrollo se releen del disco; fuera del repo se usa el embebido
		tmpl, err = template.New("layout").Funcs(views.Funcs()).ParseGlob("internal/views/*.html")
		if err != nil {
			log.Debug().Err(err).Msg("templates del disco no disponibles")
			tmpl, err = views.Parse()
		}
	} else {
		tmpl, err = views.Parse()
	}
	if err != nil {
		return nil, err
	}
	a.Tmpl = tmpl

	return a, nil
}

// Run keeps the live list subscribed until ctx is done.
func (a *App) Run(ctx context.Context) {
	a.Live.Run(ctx)
}

func (a *App) HTTPHandler() http.Handler {
	return httpserver.New(a.Tmpl, a.Customers, a.Live, a.Hub)
}
