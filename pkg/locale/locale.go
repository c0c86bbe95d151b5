// Package locale holds the static localized string tables used for progress
// messages, chitchat greetings, source labels, and error fallbacks. Tables
// are keyed by lowercase language name; missing entries fall back to English.
package locale

import (
	"fmt"
	"strings"
)

// Message keys.
const (
	KeyGreeting        = "greeting"
	KeySourcesLabel    = "sources_label"
	KeyAnalyzing       = "analyzing"
	KeyPlanning        = "planning"
	KeyExecuting       = "executing"
	KeyResolving       = "resolving"
	KeyFinalizing      = "finalizing"
	KeyTaskRetrying    = "task_retrying"
	KeyTaskRecovered   = "task_recovered"
	KeyCompleted       = "completed"
	KeyErrorFallback   = "error_fallback"
	KeyPartialFooter   = "partial_footer"
	KeyAllAgentsFailed = "all_agents_failed"
)

var tables = map[string]map[string]string{
	"english": {
		KeyGreeting:      "Hello! How can I help you today?",
		KeySourcesLabel:  "Sources:",
		KeyAnalyzing:     "Analyzing your request...",
		KeyPlanning:      "Building an execution plan...",
		KeyExecuting:     "Agents are working on your request...",
		KeyResolving:     "Reconciling answers from multiple agents...",
		KeyFinalizing:    "Preparing the final answer...",
		KeyTaskRetrying:  "Retrying a failed step (attempt %d)...",
		KeyTaskRecovered: "Recovered after retry",
		KeyCompleted:     "Done",
		KeyErrorFallback: "I'm sorry, I couldn't complete your request right now. You can try:\n" +
			"1. Trying again in a few minutes\n" +
			"2. Rephrasing your question\n" +
			"3. Contacting support if the problem persists",
		KeyPartialFooter:   "Note: some information could not be retrieved, so the results may be incomplete.",
		KeyAllAgentsFailed: "All agents failed to execute",
	},
	"vietnamese": {
		KeyGreeting:      "Xin chào! Tôi có thể giúp gì cho bạn hôm nay?",
		KeySourcesLabel:  "Nguồn tham khảo:",
		KeyAnalyzing:     "Đang phân tích yêu cầu của bạn...",
		KeyPlanning:      "Đang xây dựng kế hoạch thực thi...",
		KeyExecuting:     "Các agent đang xử lý yêu cầu của bạn...",
		KeyResolving:     "Đang tổng hợp câu trả lời từ nhiều agent...",
		KeyFinalizing:    "Đang chuẩn bị câu trả lời cuối cùng...",
		KeyTaskRetrying:  "Đang thử lại bước bị lỗi (lần %d)...",
		KeyTaskRecovered: "Đã khôi phục sau khi thử lại",
		KeyCompleted:     "Hoàn tất",
		KeyErrorFallback: "Xin lỗi, tôi không thể hoàn thành yêu cầu của bạn lúc này. Bạn có thể:\n" +
			"1. Thử lại sau vài phút\n" +
			"2. Diễn đạt lại câu hỏi\n" +
			"3. Liên hệ bộ phận hỗ trợ nếu sự cố tiếp diễn",
		KeyPartialFooter:   "Lưu ý: một số thông tin không thể truy xuất được nên kết quả có thể chưa đầy đủ.",
		KeyAllAgentsFailed: "Tất cả các agent đều thực thi thất bại",
	},
	"japanese": {
		KeyGreeting:      "こんにちは！本日はどのようなご用件でしょうか？",
		KeySourcesLabel:  "参考資料:",
		KeyAnalyzing:     "リクエストを分析しています...",
		KeyPlanning:      "実行プランを作成しています...",
		KeyExecuting:     "エージェントがリクエストを処理しています...",
		KeyResolving:     "複数エージェントの回答を統合しています...",
		KeyFinalizing:    "最終回答を準備しています...",
		KeyTaskRetrying:  "失敗したステップを再試行しています（%d回目）...",
		KeyTaskRecovered: "再試行後に回復しました",
		KeyCompleted:     "完了",
		KeyErrorFallback: "申し訳ありません。現在リクエストを完了できませんでした。次をお試しください:\n" +
			"1. 数分後にもう一度試す\n" +
			"2. 質問を言い換える\n" +
			"3. 問題が続く場合はサポートに連絡する",
		KeyPartialFooter:   "注意: 一部の情報を取得できなかったため、結果が不完全な場合があります。",
		KeyAllAgentsFailed: "すべてのエージェントの実行に失敗しました",
	},
}

// Text returns the localized string for the given key, falling back to the
// English table and finally to the key itself for unknown keys.
func Text(language, key string) string {
	lang := strings.ToLower(strings.TrimSpace(language))
	if table, ok := tables[lang]; ok {
		if msg, ok := table[key]; ok {
			return msg
		}
	}
	if msg, ok := tables["english"][key]; ok {
		return msg
	}
	return key
}

// Textf returns the localized string formatted with args.
func Textf(language, key string, args ...any) string {
	return fmt.Sprintf(Text(language, key), args...)
}

// Supported reports whether a dedicated table exists for the language.
func Supported(language string) bool {
	_, ok := tables[strings.ToLower(strings.TrimSpace(language))]
	return ok
}
