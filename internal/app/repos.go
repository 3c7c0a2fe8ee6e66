package app

import (
	"gorm.io/gorm"

	"github.com/communityvault/backend/internal/platform/logger"
	"github.com/communityvault/backend/internal/repos"
)

type Repos struct {
	User         repos.UserRepo
	Project      repos.ProjectRepo
	File         repos.FileRepo
	FileView     repos.FileViewRepo
	Transaction  repos.TransactionRepo
	Notification repos.NotificationRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		User:         repos.NewUserRepo(db, log),
		Project:      repos.NewProjectRepo(db, log),
		File:         repos.NewFileRepo(db, log),
		FileView:     repos.NewFileViewRepo(db, log),
		Transaction:  repos.NewTransactionRepo(db, log),
		Notification: repos.NewNotificationRepo(db, log),
	}
}
