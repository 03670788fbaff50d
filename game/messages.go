package game

import (
	"errors"
	"slices"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Message keys.
const (
	msgComputer         = "computer"
	msgPlayerTurn       = "playerTurn"
	msgFirstWord        = "firstWord"
	msgNextLetter       = "nextLetter"
	msgComputerThinking = "computerThinking"
	msgEmptyInput       = "pleaseEnterWord"
	msgInvalidChars     = "onlyJapaneseCharacters"
	msgWordUsed         = "wordAlreadyUsed"
	msgInvalidStart     = "invalidWordStart"
	msgEnterNames       = "enterPlayerNames"
	msgNotPlaying       = "notPlaying"
	msgOpponentTurn     = "opponentTurn"
	msgUnknownMode      = "unknownMode"
	msgUnknownLevel     = "unknownDifficulty"
	msgInProgress       = "gameInProgress"
	msgEndsWithN        = "wordEndsWithN"
	msgNoLegalMove      = "noLegalMove"
	msgTimeUp           = "timeUpPlayerVictory"
	msgVictory          = "playerVictory"
	msgSetup            = "setup"
)

var supported = []language.Tag{language.Japanese, language.English}

var matcher = language.NewMatcher(supported)

var messages = map[language.Tag]map[string]string{
	language.Japanese: {
		msgComputer:         "コンピューター",
		msgPlayerTurn:       "%sさんの番です！",
		msgFirstWord:        "%sさんの番です！最初の単語を入力してください",
		msgNextLetter:       "%sさんの番です！「%s」から始まる単語を入力してください",
		msgComputerThinking: "コンピューターが考え中...",
		msgEmptyInput:       "単語を入力してください",
		msgInvalidChars:     "ひらがなとカタカナの文字のみ入力可能です",
		msgWordUsed:         "その単語は既に使われています",
		msgInvalidStart:     "「%s」で始まる単語を入力してください",
		msgEnterNames:       "プレイヤー名を入力してください",
		msgNotPlaying:       "ゲームが開始されていません",
		msgOpponentTurn:     "コンピューターの番です。お待ちください",
		msgUnknownMode:      "不明なゲームモードです",
		msgUnknownLevel:     "不明な難易度です",
		msgInProgress:       "ゲームはまだ終わっていません",
		msgEndsWithN:        "「%s」は「ん」で終わります。%sさんの勝利！",
		msgNoLegalMove:      "コンピューターは単語を見つけられませんでした。%sさんの勝利！",
		msgTimeUp:           "%sさんの時間切れ！%sさんの勝利です！",
		msgVictory:          "%sさんの勝利！",
		msgSetup:            "プレイヤー名を入力してゲームを開始してください",
	},
	language.English: {
		msgComputer:         "Computer",
		msgPlayerTurn:       "%s's turn!",
		msgFirstWord:        "%s's turn! Enter the first word",
		msgNextLetter:       "%s's turn! Enter a word starting with \"%s\"",
		msgComputerThinking: "Computer is thinking...",
		msgEmptyInput:       "Please enter a word",
		msgInvalidChars:     "Only Hiragana and Katakana characters are allowed",
		msgWordUsed:         "That word has already been used",
		msgInvalidStart:     "Word must start with \"%s\"",
		msgEnterNames:       "Please enter player names",
		msgNotPlaying:       "The game has not started",
		msgOpponentTurn:     "It is the computer's turn, please wait",
		msgUnknownMode:      "Unknown game mode",
		msgUnknownLevel:     "Unknown difficulty",
		msgInProgress:       "The game is still in progress",
		msgEndsWithN:        "\"%s\" ends with \"ん\". %s wins!",
		msgNoLegalMove:      "The computer could not find a word. %s wins!",
		msgTimeUp:           "%s's time is up! %s wins!",
		msgVictory:          "%s wins!",
		msgSetup:            "Enter player names to start the game",
	},
}

var messageCatalog = mustBuildCatalog()

func mustBuildCatalog() catalog.Catalog {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for tag, msgs := range messages {
		for key, msg := range msgs {
			if err := b.SetString(tag, key, msg); err != nil {
				panic(err)
			}
		}
	}
	return b
}

// Languages returns the languages messages can be rendered in.
func Languages() []language.Tag {
	return slices.Clone(supported)
}

// MatchLanguage picks the supported language closest to the given
// preferences, each either a tag ("ja") or an Accept-Language header value.
// It falls back to Japanese.
func MatchLanguage(prefs ...string) language.Tag {
	var tags []language.Tag
	for _, p := range prefs {
		if p == "" {
			continue
		}
		parsed, _, err := language.ParseAcceptLanguage(p)
		if err != nil {
			continue
		}
		tags = append(tags, parsed...)
	}
	if len(tags) == 0 {
		return language.Japanese
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return language.Japanese
	}
	return supported[idx]
}

// Messages renders user-facing engine text in one language.
type Messages struct {
	tag     language.Tag
	printer *message.Printer
}

// NewMessages returns the message set for tag.
func NewMessages(tag language.Tag) *Messages {
	_, idx, _ := matcher.Match(tag)
	tag = supported[idx]
	return &Messages{
		tag:     tag,
		printer: message.NewPrinter(tag, message.Catalog(messageCatalog)),
	}
}

// Language returns the language messages are rendered in.
func (m *Messages) Language() language.Tag {
	return m.tag
}

// ComputerName is the display name of the computer opponent.
func (m *Messages) ComputerName() string {
	return m.printer.Sprintf(msgComputer)
}

// Error renders a rejection.
func (m *Messages) Error(err error) string {
	var e *Error
	switch CodeOf(err) {
	case CodeEmptyInput:
		return m.printer.Sprintf(msgEmptyInput)
	case CodeInvalidCharacterSet:
		return m.printer.Sprintf(msgInvalidChars)
	case CodeDuplicateWord:
		return m.printer.Sprintf(msgWordUsed)
	case CodeChainMismatch:
		if errors.As(err, &e) {
			return m.printer.Sprintf(msgInvalidStart, string(e.Char))
		}
	case CodeIncompleteSetup:
		return m.printer.Sprintf(msgEnterNames)
	case CodeNotPlaying:
		return m.printer.Sprintf(msgNotPlaying)
	case CodeOpponentTurn:
		return m.printer.Sprintf(msgOpponentTurn)
	case CodeUnknownMode:
		return m.printer.Sprintf(msgUnknownMode)
	case CodeUnknownDifficulty:
		return m.printer.Sprintf(msgUnknownLevel)
	case CodeGameInProgress:
		return m.printer.Sprintf(msgInProgress)
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

// Status renders the prompt or result for the session's current state.
func (m *Messages) Status(s Session) string {
	switch s.Phase {
	case PhasePlaying:
		holder := s.TurnHolder()
		switch {
		case holder.Computer:
			return m.printer.Sprintf(msgComputerThinking)
		case s.LastWord == "":
			return m.printer.Sprintf(msgFirstWord, holder.Name)
		default:
			return m.printer.Sprintf(msgNextLetter, holder.Name, string(s.NextChar()))
		}
	case PhaseGameOver:
		if s.Outcome == nil {
			return ""
		}
		winner := s.Participants[s.Outcome.Winner].Name
		loser := s.Participants[s.Outcome.Loser].Name
		switch s.Outcome.Reason {
		case ReasonTerminalWord:
			return m.printer.Sprintf(msgEndsWithN, s.LastWord, winner)
		case ReasonNoLegalMove:
			return m.printer.Sprintf(msgNoLegalMove, winner)
		case ReasonTimeUp:
			return m.printer.Sprintf(msgTimeUp, loser, winner)
		}
		return m.printer.Sprintf(msgVictory, winner)
	}
	return m.printer.Sprintf(msgSetup)
}
