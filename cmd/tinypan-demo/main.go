// Command tinypan-demo connects to a fixed remote BD_ADDR over BNEP and
// logs every top-level event until interrupted. It is a thin wiring
// example, not a production client: IP packets are handed to a stub
// netif.Stack that only records them.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Akhil-Chaturvedi/TinyPAN/internal/config"
	"github.com/Akhil-Chaturvedi/TinyPAN/pkg/bnep"
	"github.com/Akhil-Chaturvedi/TinyPAN/pkg/facade"
	"github.com/Akhil-Chaturvedi/TinyPAN/pkg/hal/linux"
	"github.com/Akhil-Chaturvedi/TinyPAN/pkg/netif"
	"github.com/Akhil-Chaturvedi/TinyPAN/pkg/netif/stub"
)

func main() {
	remote := flag.String("remote", "", "remote BD_ADDR, colon-separated hex (AA:BB:CC:DD:EE:FF)")
	devID := flag.Int("device", 0, "local HCI device id")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	undo := zap.ReplaceGlobals(logger)
	defer undo()

	addr, err := parseBDAddr(*remote)
	if err != nil {
		logger.Fatal("invalid -remote", zap.Error(err))
	}

	h := linux.New(*devID, logger)
	stk := stub.New(logger)

	f := facade.New(logger)
	f.OnEvent = func(e facade.Event) {
		logger.Info("event", zap.Stringer("event", e), zap.Stringer("state", f.State()))
	}

	cfg := config.DefaultConfig(addr)
	if err := f.Init(cfg, facade.Params{HAL: h, Stack: stk, Mode: netif.ModeEthernet, Log: logger}); err != nil {
		logger.Fatal("init failed", zap.Error(err))
	}
	defer f.Deinit()

	var now uint32
	if err := f.Start(now); err != nil {
		logger.Fatal("start failed", zap.Error(err))
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-sigCh:
			f.Stop(now)
			return
		case <-ticker.C:
			now += 50
			f.Process(now)
			if f.IsOnline() {
				info, _ := f.GetIPInfo()
				logger.Debug("online", zap.Any("ip", info))
			}
		}
	}
}

func parseBDAddr(s string) (bnep.BDAddr, error) {
	var addr bnep.BDAddr
	if s == "" {
		return addr, fmt.Errorf("empty address")
	}
	n, err := fmt.Sscanf(s, "%02X:%02X:%02X:%02X:%02X:%02X",
		&addr[0], &addr[1], &addr[2], &addr[3], &addr[4], &addr[5])
	if err != nil || n != 6 {
		return addr, fmt.Errorf("expected AA:BB:CC:DD:EE:FF, got %q", s)
	}
	return addr, nil
}
