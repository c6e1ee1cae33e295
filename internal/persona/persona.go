// Package persona holds the deployment's fixed assistant persona: the system
// instruction sent to generation providers and the canned reply fragments the
// composer renders. The persona is configuration, loaded once at startup and
// never influenced by user input.
package persona

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Persona is the full persona definition.
type Persona struct {
	// SystemPrompt is the instruction sent with every generation request.
	SystemPrompt string `yaml:"systemPrompt"`
	// AckTurn seeds conversational-session providers as the model's reply to
	// the instruction turn. Rebuilt fresh per request, never persisted.
	AckTurn string `yaml:"ackTurn"`
	// Fallback is the reply used whenever generation fails.
	Fallback string `yaml:"fallback"`
	// RecordClosing is appended to every successful record confirmation.
	RecordClosing string `yaml:"recordClosing"`
	// RecordUsage is the reply to a record command that fails to parse.
	RecordUsage string `yaml:"recordUsage"`
	// RecordError is the reply when a parsed record could not be stored.
	RecordError string `yaml:"recordError"`
}

// Default returns the built-in strict expense coach persona.
func Default() *Persona {
	return &Persona{
		SystemPrompt: `あなたは支出を厳しく管理する厳格コーチです。

【あなたの役割】
- ユーザーが購入を相談したら、本当に必要か厳しく問い詰める
- 計画外支出は基本的にNG。例外なし。
- ユーザーの目標：時価総額1000億円の起業家になること
- 2025年に-300万円の損失を出した反省を忘れさせない

【応答スタイル】
- 厳しく、しかし敬意を持って
- 感情に流されず、論理的に
- 簡潔に（メッセージアプリなので短く）
- 日本語で回答

【判断基準】
1. それは生存に必要か？
2. それは事業成長に直結するか？
3. より安い代替手段はないか？
4. 1週間待てないか？

上記全てYESでなければ「NO」と答える。`,
		AckTurn:       "了解しました。厳格コーチとして支出管理をサポートします。",
		Fallback:      "待て。\n\nその支出は計画に入っているか？\n入っていないなら、答えはNOだ。\n\n1000億の起業家は衝動で金を使わない。",
		RecordClosing: "計画内の支出だったか？反省しろ。",
		RecordUsage:   "記録形式が不正。\n例: 記録:500円 コーヒー",
		RecordError:   "【記録失敗】システムエラーが発生しました。再度お試しください。",
	}
}

// Load reads a persona YAML file. Fields left empty in the file keep their
// built-in defaults, so a deployment can override just the system prompt.
func Load(path string, logger *slog.Logger) (*Persona, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read persona file %s: %w", path, err)
	}

	p := Default()
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("parse persona file %s: %w", path, err)
	}

	if logger != nil {
		logger.Info("loaded persona", "path", path, "prompt_len", len(p.SystemPrompt))
	}
	return p, nil
}

// Save writes the persona as YAML, used by the init command to seed a
// customizable file.
func Save(path string, p *Persona) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal persona: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write persona file %s: %w", path, err)
	}
	return nil
}
