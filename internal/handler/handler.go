package handler

import (
	"sync"

	"github.com/go-telegram/bot"
	"github.com/set-night/mindchat/internal/config"
	"github.com/set-night/mindchat/internal/dispatch"
	"github.com/set-night/mindchat/internal/repository"
	"github.com/set-night/mindchat/internal/service"
	"github.com/set-night/mindchat/internal/telegram"
)

// Handler holds all dependencies needed by command and callback handlers.
type Handler struct {
	bot         *bot.Bot
	cfg         *config.Config
	auth        *service.AuthService
	history     *service.HistoryService
	content     *service.ContentService
	breathing   *service.BreathingService
	digest      *service.DigestService
	dispatcher  *dispatch.Dispatcher
	states      *repository.ClientStates
	tgLogger    *telegram.TelegramLogger
	botUsername string
	commands    map[string]command

	// chat id -> *exercise running for that chat
	exercises sync.Map
}

// Deps contains all dependencies required to construct a Handler.
type Deps struct {
	Bot         *bot.Bot
	Cfg         *config.Config
	Auth        *service.AuthService
	History     *service.HistoryService
	Content     *service.ContentService
	Breathing   *service.BreathingService
	Digest      *service.DigestService
	Dispatcher  *dispatch.Dispatcher
	States      *repository.ClientStates
	TgLogger    *telegram.TelegramLogger
	BotUsername string
}

// New creates a new Handler from the provided dependencies.
func New(deps Deps) *Handler {
	h := &Handler{
		bot:         deps.Bot,
		cfg:         deps.Cfg,
		auth:        deps.Auth,
		history:     deps.History,
		content:     deps.Content,
		breathing:   deps.Breathing,
		digest:      deps.Digest,
		dispatcher:  deps.Dispatcher,
		states:      deps.States,
		tgLogger:    deps.TgLogger,
		botUsername: deps.BotUsername,
	}
	h.commands = h.commandTable()
	return h
}
