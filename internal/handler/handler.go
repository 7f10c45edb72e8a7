package handler

import (
	"github.com/lbre/imgbatch/internal/archive"
	"github.com/lbre/imgbatch/internal/cleanup"
	"github.com/lbre/imgbatch/internal/config"
	"github.com/lbre/imgbatch/internal/convert"
	"github.com/lbre/imgbatch/internal/database"
	"github.com/lbre/imgbatch/internal/quota"
	"github.com/lbre/imgbatch/internal/storage"
)

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	Store     storage.Store
	DB        database.Database
	Quota     quota.Store
	QuotaKey  quota.KeyFunc
	Converter *convert.Converter
	Archiver  *archive.Builder
	Cleaner   *cleanup.Scheduler
	Config    *config.Config
}
