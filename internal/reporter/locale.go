package reporter

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownLocale = errors.New("unknown locale")

// Locale holds the user-facing labels of rendered results.
type Locale struct {
	Code string

	Title    string // artifact heading
	Task     string
	Date     string
	Model    string
	Provider string
	Success  string
	Duration string
	Result   string
	Yes      string
	No       string
	Seconds  string

	AgentResult string // display block heading
	Status      string
	Succeeded   string
	Failed      string
	UsedModel   string
	Answer      string
	Error       string
	Skipped     string
	EmptyBatch  string
	Degraded    string
	Files       string

	Menu Menu
}

// Menu holds the prompts of the interactive console.
type Menu struct {
	Title         string
	Question      string
	Single        string
	Batch         string
	Exit          string
	Choice        string
	AskTask       string
	AskSteps      string
	AskCount      string
	AskTaskN      string // %d
	AskBatchSteps string
	Starting      string // %s
	Waiting       string
	Running       string // %d/%d
	InvalidNumber string
	InvalidChoice string
	Goodbye       string
}

var english = Locale{
	Code:        "en",
	Title:       "Notte AI Agent Result",
	Task:        "Task",
	Date:        "Date",
	Model:       "Model",
	Provider:    "Provider",
	Success:     "Success",
	Duration:    "Duration",
	Result:      "Result",
	Yes:         "Yes",
	No:          "No",
	Seconds:     "seconds",
	AgentResult: "🔍 Agent Result",
	Status:      "Status",
	Succeeded:   "✅ Successful",
	Failed:      "❌ Failed",
	UsedModel:   "Model Used",
	Answer:      "Answer",
	Error:       "❌ Error",
	Skipped:     "⊘ Skipped",
	EmptyBatch:  "❌ Please enter at least one task!",
	Degraded:    "⚠️ Result produced, artifacts unavailable",
	Files:       "Saved files",
	Menu: Menu{
		Title:         "📱 Notte AI Agent Interactive Console",
		Question:      "What would you like to do?",
		Single:        "1. Run a single task",
		Batch:         "2. Run multiple tasks",
		Exit:          "3. Exit",
		Choice:        "Your choice (1-3): ",
		AskTask:       "Describe the task you want done: ",
		AskSteps:      "Maximum steps (default: 10): ",
		AskCount:      "How many tasks do you want to run?: ",
		AskTaskN:      "Task %d: ",
		AskBatchSteps: "Maximum steps for all tasks (default: 10): ",
		Starting:      "⏳ Starting task: %s",
		Waiting:       "Working, please wait...",
		Running:       "🔄 Running task %d/%d...",
		InvalidNumber: "❌ Error: please enter a valid number!",
		InvalidChoice: "❌ Invalid choice! Please enter a value between 1 and 3.",
		Goodbye:       "👋 Exiting...",
	},
}

var turkish = Locale{
	Code:        "tr",
	Title:       "Notte AI Agent Sonucu",
	Task:        "Görev",
	Date:        "Tarih",
	Model:       "Model",
	Provider:    "Provider",
	Success:     "Başarı",
	Duration:    "Süre",
	Result:      "Sonuç",
	Yes:         "Evet",
	No:          "Hayır",
	Seconds:     "saniye",
	AgentResult: "🔍 Agent Sonucu",
	Status:      "Başarı Durumu",
	Succeeded:   "✅ Başarılı",
	Failed:      "❌ Başarısız",
	UsedModel:   "Kullanılan Model",
	Answer:      "Cevap",
	Error:       "❌ Hata",
	Skipped:     "⊘ Atlandı",
	EmptyBatch:  "❌ Lütfen en az bir görev girin!",
	Degraded:    "⚠️ Sonuç üretildi, dosyalar kaydedilemedi",
	Files:       "Kaydedilen dosyalar",
	Menu: Menu{
		Title:         "📱 Notte AI Agent Interactive Console",
		Question:      "Ne yapmak istiyorsunuz?",
		Single:        "1. Tek görev çalıştır",
		Batch:         "2. Çoklu görev çalıştır",
		Exit:          "3. Çıkış",
		Choice:        "Seçiminiz (1-3): ",
		AskTask:       "Yapılmasını istediğiniz görevi yazın: ",
		AskSteps:      "Maksimum adım sayısı (varsayılan: 10): ",
		AskCount:      "Kaç görev çalıştırmak istiyorsunuz?: ",
		AskTaskN:      "Görev %d: ",
		AskBatchSteps: "Tüm görevler için maksimum adım sayısı (varsayılan: 10): ",
		Starting:      "⏳ Görev başlatılıyor: %s",
		Waiting:       "İşlem devam ediyor, lütfen bekleyin...",
		Running:       "🔄 Görev %d/%d çalıştırılıyor...",
		InvalidNumber: "❌ Hata: Lütfen geçerli bir sayı girin!",
		InvalidChoice: "❌ Geçersiz seçim! Lütfen 1-3 arasında bir değer girin.",
		Goodbye:       "👋 Program sonlandırılıyor...",
	},
}

// English is the default locale.
func English() Locale { return english }

// LocaleFor returns the locale for a language code. Empty means English.
func LocaleFor(code string) (Locale, error) {
	switch strings.ToLower(strings.TrimSpace(code)) {
	case "", "en":
		return english, nil
	case "tr":
		return turkish, nil
	default:
		return english, fmt.Errorf("%w: %q (supported: en, tr)", ErrUnknownLocale, code)
	}
}

// YesNo returns the localized boolean.
func (l Locale) YesNo(b bool) string {
	if b {
		return l.Yes
	}
	return l.No
}

// FormatSeconds formats a duration in seconds with two decimals.
func (l Locale) FormatSeconds(s float64) string {
	return fmt.Sprintf("%.2f %s", s, l.Seconds)
}
