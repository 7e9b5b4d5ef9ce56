package cache

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-resty/resty/v2"
)

// DefaultRemoteTimeout bounds every HTTP request issued by RESTClient.
const DefaultRemoteTimeout = 5 * time.Second

type restConfig struct {
	timeout   time.Duration
	userAgent string
}

// RESTOption configures a RESTClient.
type RESTOption func(*restConfig)

// WithRESTTimeout sets the HTTP timeout. Defaults to DefaultRemoteTimeout.
func WithRESTTimeout(d time.Duration) RESTOption {
	return func(c *restConfig) { c.timeout = d }
}

// WithRESTUserAgent overrides the User-Agent header sent with each command.
func WithRESTUserAgent(ua string) RESTOption {
	return func(c *restConfig) { c.userAgent = ua }
}

// RESTClient speaks the command-over-HTTP protocol: each command is POSTed
// as a JSON array with a bearer token, and the reply is {"result": ...} or
// {"error": ...}.
type RESTClient struct {
	url   string
	token string
	resty *resty.Client
}

var _ Remote = (*RESTClient)(nil)

// NewRESTClient returns a client for the service at url. With an empty url or
// token every call fails with ErrRemoteNotConfigured and no request is made.
func NewRESTClient(url, token string, opts ...RESTOption) *RESTClient {
	cfg := restConfig{timeout: DefaultRemoteTimeout, userAgent: "go-kvcache"}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	rc := resty.New()
	if cfg.timeout > 0 {
		rc.SetTimeout(cfg.timeout)
	}
	rc.SetHeader("Content-Type", "application/json")
	rc.SetHeader("User-Agent", cfg.userAgent)
	return &RESTClient{
		url:   strings.TrimSpace(url),
		token: strings.TrimSpace(token),
		resty: rc,
	}
}

func (c *RESTClient) do(ctx context.Context, args ...string) (json.RawMessage, error) {
	if c.url == "" || c.token == "" {
		return nil, ErrRemoteNotConfigured
	}
	command := args[0]
	body, err := json.Marshal(args)
	if err != nil {
		return nil, errors.Wrapf(err, "cache: encode %s", command)
	}
	resp, err := c.resty.R().
		SetContext(ctx).
		SetAuthToken(c.token).
		SetBody(body).
		Post(c.url)
	if err != nil {
		return nil, errors.Wrapf(err, "cache: remote %s", command)
	}
	if !resp.IsSuccess() {
		return nil, &RemoteError{Command: command, StatusCode: resp.StatusCode(), Message: strings.TrimSpace(resp.String())}
	}
	var reply map[string]json.RawMessage
	if err := json.Unmarshal(resp.Body(), &reply); err != nil {
		return nil, errors.Wrapf(ErrUnexpectedReply, "%s: %s", command, err)
	}
	if msg, ok := reply["error"]; ok && !isNull(msg) {
		var text string
		if json.Unmarshal(msg, &text) != nil {
			text = string(msg)
		}
		return nil, &RemoteError{Command: command, Message: text}
	}
	result, ok := reply["result"]
	if !ok {
		return nil, errors.Wrapf(ErrUnexpectedReply, "%s: missing result", command)
	}
	return result, nil
}

func isNull(raw json.RawMessage) bool {
	return strings.TrimSpace(string(raw)) == "null"
}

func replyString(command string, raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", errors.Wrapf(ErrUnexpectedReply, "%s: %s", command, raw)
	}
	return s, nil
}

func replyInt(command string, raw json.RawMessage) (int64, error) {
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if i, err := n.Int64(); err == nil {
			return i, nil
		}
	}
	return 0, errors.Wrapf(ErrUnexpectedReply, "%s: %s", command, raw)
}

func (c *RESTClient) Set(ctx context.Context, key string, val any, ttl time.Duration) error {
	buf, err := JSONCodec{}.Marshal(val)
	if err != nil {
		return err
	}
	raw, err := c.do(ctx, "SETEX", key, strconv.FormatInt(ttlSeconds(ttl), 10), string(buf))
	if err != nil {
		return err
	}
	s, err := replyString("SETEX", raw)
	if err != nil {
		return err
	}
	if s != "OK" {
		return errors.Wrapf(ErrUnexpectedReply, "SETEX: %q", s)
	}
	return nil
}

func (c *RESTClient) Get(ctx context.Context, key string) (any, bool, error) {
	raw, err := c.do(ctx, "GET", key)
	if err != nil {
		return nil, false, err
	}
	if isNull(raw) {
		return nil, false, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		// a non-string result is already a decoded value
		val, _ := JSONCodec{}.Unmarshal(raw)
		return val, true, nil
	}
	val, _ := JSONCodec{}.Unmarshal([]byte(s))
	return val, true, nil
}

func (c *RESTClient) Del(ctx context.Context, key string) (bool, error) {
	return c.count(ctx, "DEL", key)
}

func (c *RESTClient) Exists(ctx context.Context, key string) (bool, error) {
	return c.count(ctx, "EXISTS", key)
}

func (c *RESTClient) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return c.count(ctx, "EXPIRE", key, strconv.FormatInt(ttlSeconds(ttl), 10))
}

func (c *RESTClient) count(ctx context.Context, args ...string) (bool, error) {
	raw, err := c.do(ctx, args...)
	if err != nil {
		return false, err
	}
	n, err := replyInt(args[0], raw)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (c *RESTClient) Incr(ctx context.Context, key string) (int64, error) {
	raw, err := c.do(ctx, "INCR", key)
	if err != nil {
		return 0, err
	}
	return replyInt("INCR", raw)
}

func (c *RESTClient) Ping(ctx context.Context) error {
	raw, err := c.do(ctx, "PING")
	if err != nil {
		return err
	}
	s, err := replyString("PING", raw)
	if err != nil {
		return err
	}
	if s != "PONG" {
		return errors.Wrapf(ErrUnexpectedReply, "PING: %q", s)
	}
	return nil
}
