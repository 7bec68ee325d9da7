// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// 認証サービスやミドルウェアから利用する。
type MetricsCollector interface {
	RecordLoginSuccess()
	RecordLoginFailure(reason string)
	RecordOTPIssued(purpose string)
	RecordOTPVerified(purpose string)
	RecordOTPRejected(purpose string)
	RecordRateLimitDenied(scope string)
	RecordGateRedirect()
	RecordGateForbidden()
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	loginSuccess    prometheus.Counter
	loginFail       *prometheus.CounterVec
	otpIssued       *prometheus.CounterVec
	otpVerified     *prometheus.CounterVec
	otpRejected     *prometheus.CounterVec
	ratelimitDenied *prometheus.CounterVec
	gateRedirect    prometheus.Counter
	gateForbidden   prometheus.Counter
	httpStatus      *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		loginSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "guichet_login_success_total",
			Help: "ログイン成功の合計数",
		}),
		loginFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "guichet_login_failure_total",
			Help: "ログイン失敗の合計数（理由別）",
		}, []string{"reason"}),
		otpIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "guichet_otp_issued_total",
			Help: "発行されたワンタイムコードの合計数（用途別）",
		}, []string{"purpose"}),
		otpVerified: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "guichet_otp_verified_total",
			Help: "検証に成功したワンタイムコードの合計数（用途別）",
		}, []string{"purpose"}),
		otpRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "guichet_otp_rejected_total",
			Help: "拒否されたワンタイムコードの合計数（用途別）",
		}, []string{"purpose"}),
		ratelimitDenied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "guichet_ratelimit_denied_total",
			Help: "レート制限により拒否されたリクエストの合計数（スコープ別）",
		}, []string{"scope"}),
		gateRedirect: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "guichet_gate_redirect_total",
			Help: "認証ゲートによるリダイレクトの合計数",
		}),
		gateForbidden: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "guichet_gate_forbidden_total",
			Help: "認証ゲートによる403拒否の合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "guichet_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.loginSuccess,
		c.loginFail,
		c.otpIssued,
		c.otpVerified,
		c.otpRejected,
		c.ratelimitDenied,
		c.gateRedirect,
		c.gateForbidden,
		c.httpStatus,
	)

	return c
}

// RecordLoginSuccess はログイン成功を記録する。
func (c *Collector) RecordLoginSuccess() {
	c.loginSuccess.Inc()
}

// RecordLoginFailure はログイン失敗を理由付きで記録する。
func (c *Collector) RecordLoginFailure(reason string) {
	c.loginFail.WithLabelValues(reason).Inc()
}

// RecordOTPIssued はワンタイムコードの発行を記録する。
func (c *Collector) RecordOTPIssued(purpose string) {
	c.otpIssued.WithLabelValues(purpose).Inc()
}

// RecordOTPVerified はワンタイムコードの検証成功を記録する。
func (c *Collector) RecordOTPVerified(purpose string) {
	c.otpVerified.WithLabelValues(purpose).Inc()
}

// RecordOTPRejected はワンタイムコードの拒否を記録する。
func (c *Collector) RecordOTPRejected(purpose string) {
	c.otpRejected.WithLabelValues(purpose).Inc()
}

// RecordRateLimitDenied はレート制限による拒否を記録する。
func (c *Collector) RecordRateLimitDenied(scope string) {
	c.ratelimitDenied.WithLabelValues(scope).Inc()
}

// RecordGateRedirect は認証ゲートによるリダイレクトを記録する。
func (c *Collector) RecordGateRedirect() {
	c.gateRedirect.Inc()
}

// RecordGateForbidden は認証ゲートによる403拒否を記録する。
func (c *Collector) RecordGateForbidden() {
	c.gateForbidden.Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)
