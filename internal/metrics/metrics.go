// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ミドルウェア、サービス層、ワーカーから利用する。
type MetricsCollector interface {
	RecordHTTPRequest(route, method string, statusCode int, duration time.Duration)
	RecordPostCreated()
	RecordCommentCreated()
	RecordFollowChange(action string)
	RecordPageCache(hit bool)
	RecordSessionsCleaned(count int64)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpRequests    *prometheus.CounterVec
	httpLatency     *prometheus.HistogramVec
	postsCreated    prometheus.Counter
	commentsCreated prometheus.Counter
	followChanges   *prometheus.CounterVec
	pageCache       *prometheus.CounterVec
	sessionsCleaned prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "yatube_http_requests_total",
			Help: "ルート・メソッド・ステータスコード別のリクエスト数",
		}, []string{"route", "method", "status_code"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "yatube_http_request_duration_seconds",
			Help:    "リクエスト処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		postsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "yatube_posts_created_total",
			Help: "作成された投稿の合計数",
		}),
		commentsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "yatube_comments_created_total",
			Help: "作成されたコメントの合計数",
		}),
		followChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "yatube_follow_changes_total",
			Help: "フォロー関係の作成・削除の合計数",
		}, []string{"action"}),
		pageCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "yatube_page_cache_requests_total",
			Help: "ページキャッシュのヒット・ミス数",
		}, []string{"result"}),
		sessionsCleaned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "yatube_sessions_cleaned_total",
			Help: "削除された期限切れセッションの合計数",
		}),
	}

	reg.MustRegister(
		c.httpRequests,
		c.httpLatency,
		c.postsCreated,
		c.commentsCreated,
		c.followChanges,
		c.pageCache,
		c.sessionsCleaned,
	)

	return c
}

// RecordHTTPRequest はリクエスト数と処理時間を記録する。
func (c *Collector) RecordHTTPRequest(route, method string, statusCode int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	c.httpRequests.WithLabelValues(route, method, strconv.Itoa(statusCode)).Inc()
	c.httpLatency.WithLabelValues(route).Observe(duration.Seconds())
}

// RecordPostCreated は投稿作成を記録する。
func (c *Collector) RecordPostCreated() {
	c.postsCreated.Inc()
}

// RecordCommentCreated はコメント作成を記録する。
func (c *Collector) RecordCommentCreated() {
	c.commentsCreated.Inc()
}

// RecordFollowChange はフォロー関係の変更を記録する。actionは"follow"または"unfollow"。
func (c *Collector) RecordFollowChange(action string) {
	c.followChanges.WithLabelValues(action).Inc()
}

// RecordPageCache はページキャッシュの結果を記録する。
func (c *Collector) RecordPageCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	c.pageCache.WithLabelValues(result).Inc()
}

// RecordSessionsCleaned は削除した期限切れセッション数を記録する。
func (c *Collector) RecordSessionsCleaned(count int64) {
	c.sessionsCleaned.Add(float64(count))
}

// Nop は何も記録しないMetricsCollector。テストやメトリクス無効時に使う。
type Nop struct{}

func (Nop) RecordHTTPRequest(string, string, int, time.Duration) {}
func (Nop) RecordPostCreated()                                   {}
func (Nop) RecordCommentCreated()                                {}
func (Nop) RecordFollowChange(string)                            {}
func (Nop) RecordPageCache(bool)                                 {}
func (Nop) RecordSessionsCleaned(int64)                          {}

var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = Nop{}
)

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
