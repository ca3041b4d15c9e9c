package handler

import (
	"context"
	"sort"
	"strings"
	"unicode"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

type command struct {
	handle bot.HandlerFunc
	help   string
	admin  bool
}

func (h *Handler) commandTable() map[string]command {
	return map[string]command{
		"start": {handle: h.handleStart},
		"help":  {handle: h.handleHelp, help: "Show what I can do"},

		"login":    {handle: h.handleLogin, help: "<email> <password> Sign in"},
		"register": {handle: h.handleRegister, help: "<email> <password> <password> <name> Create an account"},
		"guest":    {handle: h.handleGuest, help: "[name] Chat without an account"},
		"logout":   {handle: h.handleLogout, help: "Sign out and forget this chat"},
		"profile":  {handle: h.handleProfile, help: "[new name] Show or change your profile"},
		"password": {handle: h.handlePassword, help: "<current> <new> <new> Change your password"},
		"forgot":   {handle: h.handleForgot, help: "<email> Reset a forgotten password"},

		"new":     {handle: h.handleNew, help: "Start a new conversation"},
		"history": {handle: h.handleHistory, help: "Browse your conversations"},
		"rename":  {handle: h.handleRename, help: "<title> Rename the current conversation"},
		"delete":  {handle: h.handleDelete, help: "Delete the current conversation"},

		"quote":   {handle: h.handleQuote, help: "A quote to lift you up"},
		"mood":    {handle: h.handleMood, help: "[mood] A quote for how you feel"},
		"daily":   {handle: h.handleDaily, help: "Toggle the daily quote"},
		"breathe": {handle: h.handleBreathe, help: "[pattern] [cycles] Guided breathing, /breathe stop to end"},
		"theme":   {handle: h.handleTheme, help: "[calm|plain] Message style"},

		"admin":        {handle: h.handleAdmin, help: "Dashboard", admin: true},
		"categories":   {handle: h.handleCategories, help: "List quote categories", admin: true},
		"category_add": {handle: h.handleCategoryAdd, help: "<name> | [description]", admin: true},
		"category_del": {handle: h.handleCategoryDel, help: "<name or id>", admin: true},
		"quote_add":    {handle: h.handleQuoteAdd, help: "<category> | <text> | [author]", admin: true},
		"quote_del":    {handle: h.handleQuoteDel, help: "[id] Without id lists quotes", admin: true},
		"contents":     {handle: h.handleContents, help: "List published content", admin: true},
		"content_add":  {handle: h.handleContentAdd, help: "<title> | <body> | [category]", admin: true},
		"content_del":  {handle: h.handleContentDel, help: "<id>", admin: true},
		"users":        {handle: h.handleUsers, help: "List users", admin: true},
		"user_del":     {handle: h.handleUserDel, help: "<id>", admin: true},
	}
}

// Register installs the text router and all callback handlers.
func (h *Handler) Register() {
	// One text route: prefix matching would let /quote shadow /quote_add.
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "", bot.MatchTypePrefix, h.route)

	// Menu callbacks
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "menu_", bot.MatchTypePrefix, h.handleMenu)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "cur", bot.MatchTypeExact, h.handleNoop)

	// History callbacks
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "hist_open_", bot.MatchTypePrefix, h.handleHistoryOpen)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "hist_del_", bot.MatchTypePrefix, h.handleHistoryDelete)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "hist_page_", bot.MatchTypePrefix, h.handleHistoryPage)

	// Wellbeing callbacks
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "mood_", bot.MatchTypePrefix, h.handleMoodPick)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "breathe_", bot.MatchTypePrefix, h.handleBreathePick)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "theme_", bot.MatchTypePrefix, h.handleThemePick)
}

// BotCommands is the command menu shown by Telegram clients.
func (h *Handler) BotCommands() []models.BotCommand {
	var cmds []models.BotCommand
	for name, c := range h.commands {
		if c.admin || c.help == "" {
			continue
		}
		desc := c.help
		if i := strings.LastIndex(desc, "> "); i >= 0 {
			desc = desc[i+2:]
		}
		if i := strings.LastIndex(desc, "] "); i >= 0 {
			desc = desc[i+2:]
		}
		cmds = append(cmds, models.BotCommand{Command: name, Description: desc})
	}
	sort.Slice(cmds, func(i, j int) bool { return cmds[i].Command < cmds[j].Command })
	return cmds
}

func (h *Handler) route(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	name, _, isCommand := parseCommand(update.Message.Text, h.botUsername)
	if !isCommand {
		h.handleText(ctx, b, update)
		return
	}

	cmd, ok := h.commands[name]
	if !ok {
		h.reply(ctx, b, update.Message.Chat.ID, "I don't know that command. Try /help.", nil)
		return
	}
	cmd.handle(ctx, b, update)
}

// parseCommand splits "/name@bot args" into name and args. Commands
// addressed to another bot are not commands for us.
func parseCommand(text, botUsername string) (name, args string, ok bool) {
	if !strings.HasPrefix(text, "/") {
		return "", "", false
	}
	body := text[1:]
	head, rest := body, ""
	if i := strings.IndexFunc(body, unicode.IsSpace); i >= 0 {
		head, rest = body[:i], body[i+1:]
	}
	if n, at, found := strings.Cut(head, "@"); found {
		if botUsername != "" && !strings.EqualFold(at, botUsername) {
			return "", "", false
		}
		head = n
	}
	if head == "" {
		return "", "", false
	}
	return strings.ToLower(head), strings.TrimSpace(rest), true
}

func (h *Handler) handleNoop(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery != nil {
		b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: update.CallbackQuery.ID})
	}
}
