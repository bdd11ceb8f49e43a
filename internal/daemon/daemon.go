package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"grailtrade.com/internal/domain"
)

// Breaker 滑动窗口熔断器。窗口内出错超过容忍数就宣告致命，
// 让守护进程带着完整现场退出，而不是对着坏掉的服务端空转。
type Breaker struct {
	tolerance int
	period    time.Duration
	times     []time.Time
	now       func() time.Time
	log       *logrus.Entry
}

func NewBreaker(tolerance int, period time.Duration) *Breaker {
	return &Breaker{
		tolerance: tolerance,
		period:    period,
		now:       time.Now,
		log:       logrus.WithField("component", "daemon"),
	}
}

// Guard 消化一次执行结果: 预期内的错误记日志放行，
// 其余错误计数并留档，超限返回 ErrTooManyErrors。
// 返回 nil 表示调用方可以继续跑。
func (b *Breaker) Guard(name string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrTooManyErrors) {
		return err
	}
	if !domain.CountsTowardBreaker(err) {
		b.log.Warnf("%s: %v", name, err)
		return nil
	}

	now := b.now()
	b.times = append(b.times, now)
	for len(b.times) > 0 && now.Sub(b.times[0]) >= b.period {
		b.times = b.times[1:]
	}

	if domain.IsTransient(err) {
		b.log.Warnf("%s: %v", name, err)
	} else {
		b.dump(name, now, err)
	}

	if len(b.times) > b.tolerance {
		b.log.Errorf("too many (>%d) errors in past %s, stopping", b.tolerance, b.period)
		return domain.ErrTooManyErrors
	}
	return nil
}

// dump 把非瞬时错误的现场写进留档文件，坏报文原文一并保留
func (b *Breaker) dump(name string, now time.Time, err error) {
	filename := fmt.Sprintf("exception@%s.log", strings.ReplaceAll(now.Format(time.RFC3339), ":", "."))
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %+v\n", name, err)
	var mismatch *domain.ResponseMismatchError
	if errors.As(err, &mismatch) {
		sb.WriteString("raw response:\n")
		sb.Write(mismatch.Raw)
		sb.WriteString("\n")
	}
	if werr := os.WriteFile(filename, []byte(sb.String()), 0o644); werr != nil {
		b.log.Warnf("%s: %v (could not write %s: %v)", name, err, filename, werr)
		return
	}
	b.log.Warnf("%s not successful, details at `%s'", name, filename)
}

// Runner 守护进程的业务钩子
type Runner interface {
	Start(ctx context.Context) error
	Tick(ctx context.Context) error
	Hourly(ctx context.Context) error
	Daily(ctx context.Context) error
	Finalize(ctx context.Context) error
}

// Daemon 固定节拍驱动 Runner: 每轮先补日任务和时任务再跑 Tick。
// 停止信号只在节拍间隙生效，单轮总是完整跑完。
type Daemon struct {
	runner     Runner
	breaker    *Breaker
	interval   time.Duration
	lastDaily  time.Time
	lastHourly time.Time
	now        func() time.Time
	log        *logrus.Entry
}

func New(runner Runner, breaker *Breaker, interval time.Duration) *Daemon {
	return &Daemon{
		runner:   runner,
		breaker:  breaker,
		interval: interval,
		now:      time.Now,
		log:      logrus.WithField("component", "daemon"),
	}
}

// runOnce 跑一轮: 过了日界跑 Daily，过了小时界跑 Hourly，然后 Tick
func (d *Daemon) runOnce(ctx context.Context) error {
	now := d.now()

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if d.lastDaily.Before(today) {
		err := d.runner.Daily(ctx)
		if guarded := d.breaker.Guard("daily", err); guarded != nil {
			return guarded
		}
		if err == nil {
			d.lastDaily = today
		}
	}

	hour := now.Truncate(time.Hour)
	if d.lastHourly.Before(hour) {
		err := d.runner.Hourly(ctx)
		if guarded := d.breaker.Guard("hourly", err); guarded != nil {
			return guarded
		}
		if err == nil {
			d.lastHourly = hour
		}
	}

	return d.breaker.Guard("tick", d.runner.Tick(ctx))
}

// RunForever 驱动节拍循环直到 ctx 取消或熔断。Finalize 总会执行。
func (d *Daemon) RunForever(ctx context.Context) error {
	defer func() {
		if err := d.breaker.Guard("finalize", d.runner.Finalize(ctx)); err != nil {
			d.log.Errorf("finalize: %v", err)
		}
	}()

	if err := d.breaker.Guard("start", d.runner.Start(ctx)); err != nil {
		return err
	}
	timer := time.NewTimer(0)
	defer timer.Stop()
	<-timer.C

	for {
		d.log.Info("start tick")
		if err := d.runOnce(ctx); err != nil {
			return err
		}
		d.log.Info("finish run, sleeping")
		timer.Reset(d.interval)
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}
	}
}
