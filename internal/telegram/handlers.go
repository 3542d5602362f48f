package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"concept-memory/internal/analytics"
	"concept-memory/internal/concepts"
	"concept-memory/internal/engine"
	"concept-memory/internal/memory"
	"concept-memory/internal/storage"
)

const (
	defaultRecent = 5
	maxRecent     = 20
	maxRelated    = 5
	maxLinks      = 10
	statusTop     = 5
)

const helpText = `CONCEPT MEMORY ONLINE
Send any text and it will be remembered and linked.

/status - memory statistics
/recent [n] - latest records
/related <words> - records sharing concepts with the words
/links <concept> - strongest associations of a concept
/forget - wipe your memory`

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	userID, chatID := msg.From.ID, msg.Chat.ID
	args := strings.TrimSpace(msg.CommandArguments())

	var reply string
	var err error
	switch msg.Command() {
	case "start", "help":
		reply = helpText
	case "status":
		err = b.sessions.View(ctx, userID, func(e *engine.Engine) {
			reply = analytics.Summarize(e.Stats(), analytics.TopConcepts(e.Graph(), statusTop))
		})
	case "recent":
		n := defaultRecent
		if args != "" {
			v, perr := strconv.Atoi(args)
			if perr != nil || v <= 0 {
				b.sendMessage(chatID, "Usage: /recent [n]")
				return
			}
			n = min(v, maxRecent)
		}
		err = b.sessions.View(ctx, userID, func(e *engine.Engine) {
			reply = formatRecords("RECENT MEMORY", e.Log().Recent(n))
		})
	case "related":
		if args == "" {
			b.sendMessage(chatID, "Usage: /related <words>")
			return
		}
		err = b.sessions.View(ctx, userID, func(e *engine.Engine) {
			cs := e.Extract(args)
			if len(cs) == 0 {
				cs = concepts.Tokenize(args)
			}
			recs := e.Log().RelatedTo(cs)
			if len(recs) > maxRelated {
				recs = recs[:maxRelated]
			}
			reply = formatRecords("RELATED MEMORY: "+strings.Join(cs, ", "), recs)
		})
	case "links":
		fields := concepts.Tokenize(args)
		if len(fields) == 0 {
			b.sendMessage(chatID, "Usage: /links <concept>")
			return
		}
		concept := strings.Join(fields, "_")
		err = b.sessions.View(ctx, userID, func(e *engine.Engine) {
			reply = formatLinks(concept, e.Graph().NeighborsOf(concept))
		})
	case "forget":
		err = b.sessions.Forget(ctx, userID)
		reply = "MEMORY WIPED"
	default:
		reply = "UNKNOWN COMMAND\n\n" + helpText
	}
	if err != nil {
		b.logger.Error("command failed", zap.String("command", msg.Command()), zap.Int64("user_id", userID), zap.Error(err))
		b.sendMessage(chatID, "Sorry, something went wrong.")
		return
	}
	b.sendMessage(chatID, reply)
}

// handleText stores the message, answers with what it is associated with and
// journals the exchange.
func (b *Bot) handleText(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	var obs engine.Observation
	var reply string
	err := b.sessions.With(ctx, userID, func(e *engine.Engine) {
		obs = e.Observe(msg.Text)
		reply = composeReply(obs)
		e.Learn(e.Extract(reply))
	})
	if err != nil {
		b.logger.Error("failed to observe message", zap.Int64("user_id", userID), zap.Error(err))
		b.sendMessage(msg.Chat.ID, "Sorry, something went wrong.")
		return
	}
	b.logger.Info("message observed",
		zap.Int64("user_id", userID),
		zap.Uint64("record_id", uint64(obs.ID)),
		zap.Strings("concepts", obs.Concepts),
		zap.Float64("learning_rate", obs.LearningRate))

	if b.journal != nil {
		ex := storage.Exchange{
			Timestamp: b.now().UTC(),
			UserID:    userID,
			Text:      msg.Text,
			Concepts:  obs.Concepts,
			Reply:     reply,
		}
		if err := b.journal.Append(ex); err != nil {
			b.logger.Warn("failed to journal exchange", zap.Error(err))
		}
	}
	b.sendMessage(msg.Chat.ID, reply)
}

func composeReply(obs engine.Observation) string {
	if len(obs.Links) == 0 {
		return fmt.Sprintf("COGNITIVE PROCESSING COMPLETE\nINPUT ASSIMILATED\nLEARNING RATE: %.2f", obs.LearningRate)
	}
	primary := obs.Links[0]
	return "CONTEXTUAL ANALYSIS COMPLETE\n" +
		"PRIMARY CONCEPT: " + primary.Concept + "\n" +
		"ASSOCIATED WITH: " + strings.Join(primary.Related, ", ")
}

func formatRecords(title string, recs []memory.Record) string {
	if len(recs) == 0 {
		return title + "\nnothing found"
	}
	var bld strings.Builder
	bld.WriteString(title)
	bld.WriteString("\n")
	for _, r := range recs {
		fmt.Fprintf(&bld, "#%d %s", r.ID, r.Text)
		if len(r.Concepts) > 0 {
			fmt.Fprintf(&bld, " [%s]", strings.Join(r.Concepts, ", "))
		}
		bld.WriteString("\n")
	}
	return strings.TrimRight(bld.String(), "\n")
}

func formatLinks(concept string, ns []memory.Neighbor) string {
	if len(ns) == 0 {
		return "NO ASSOCIATIONS FOR " + concept
	}
	if len(ns) > maxLinks {
		ns = ns[:maxLinks]
	}
	var bld strings.Builder
	fmt.Fprintf(&bld, "ASSOCIATIONS OF %s", concept)
	for _, n := range ns {
		fmt.Fprintf(&bld, "\n- %s (%.2f)", n.Concept, n.Weight)
	}
	return bld.String()
}
