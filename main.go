package main

import (
	"context"
	"embed"
	"fmt"

	"automodel/internal/cadscript"
	"automodel/internal/database"
	"automodel/internal/events"
	"automodel/internal/mesh"
	"automodel/internal/services"
	"automodel/internal/utils"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	"github.com/wailsapp/wails/v2/pkg/options/linux"
	"gorm.io/gorm/logger"
)

//go:embed all:frontend/dist
var assets embed.FS

func main() {
	_ = utils.LoadEnv()

	app := NewApp()

	db, err := database.Init(database.Config{
		LogLevel: logger.Info,
	})
	if err != nil {
		fmt.Println("Error opening database:", err)
		return
	}

	if sqlDB, err := db.DB(); err == nil {
		app.dbClose = sqlDB.Close
	}

	//Create each service
	keyringService := services.NewKeyringService()
	dbService := services.NewDbServices(db)
	generationService := services.NewGenerationService(
		cadscript.New(),
		mesh.NewStore(),
		keyringService,
		dbService.AppSettings,
		dbService.Sessions,
	)

	app.Generation = generationService
	app.Settings = dbService.AppSettings

	events.EnableRuntimeEmitter()

	// Create application with options
	err = wails.Run(&options.App{
		Title:  "AutoModel",
		Width:  1280,
		Height: 800,
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		Linux: &linux.Options{
			WindowIsTranslucent: false,
			WebviewGpuPolicy:    linux.WebviewGpuPolicyAlways,
			ProgramName:         "AutoModel",
		},
		BackgroundColour: &options.RGBA{R: 27, G: 38, B: 54, A: 1},
		OnStartup: func(ctx context.Context) {
			app.startup(ctx)
			dbService.StartDbServices(ctx)
		},
		OnShutdown: app.shutdown,
		Bind: []interface{}{
			app,
			generationService,
			dbService.AppSettings,
			dbService.Sessions,
			keyringService,
		},
	})

	if err != nil {
		println("Error:", err.Error())
	}
}
