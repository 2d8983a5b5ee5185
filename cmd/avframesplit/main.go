package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/facebookincubator/go-belt"
	"github.com/facebookincubator/go-belt/pkg/runtime"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/facebookincubator/go-belt/tool/logger/implementation/logrus"
	"github.com/xaionaro-go/avframesplit"
	avlogger "github.com/xaionaro-go/avframesplit/logger"
	"github.com/xaionaro-go/observability"
)

func main() {
	f, err := parseFlags(os.Args[0], os.Args[1:], os.Stderr)
	if err != nil {
		os.Exit(1)
	}

	runtime.DefaultCallerPCFilter = observability.CallerPCFilter(runtime.DefaultCallerPCFilter)
	l := logrus.Default().WithLevel(f.LoggerLevel)
	ctx := avlogger.CtxWithLogger(context.Background(), l)
	avlogger.SetDefault(func() logger.Logger {
		return l
	})
	avlogger.BridgeAstiav(l)

	ctx, cancelFn := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	exitCode := run(ctx, f)
	cancelFn()
	belt.Flush(ctx)
	os.Exit(exitCode)
}

func run(
	ctx context.Context,
	f *flags,
) int {
	startTime, err := parseTime(f.Start)
	if err != nil {
		return reportError(err)
	}
	endTime, err := parseTime(f.End)
	if err != nil {
		return reportError(err)
	}

	result, err := avframesplit.ExtractFrames(
		ctx,
		f.VideoPath, f.OutputDir,
		startTime, endTime,
		avframesplit.OptionOpener(f.Backend.Opener()),
		avframesplit.OptionFormat(f.Format),
		avframesplit.OptionIndexWidth(f.IndexWidth),
	)
	if err != nil {
		return reportError(err)
	}

	fmt.Printf("Extracted frames from %vs to %vs to '%s'.\n", startTime, endTime, f.OutputDir)
	fmt.Printf(
		"%d frames (%d..%d of %s at %.3f fps), %s written\n",
		result.FramesWritten, result.Window.Start, result.LastFrame, result.Window,
		result.FrameRate, humanize.IBytes(uint64(result.BytesWritten)),
	)
	if result.StopReason == avframesplit.StopReasonEndOfStream {
		fmt.Printf("the video ended before the end of the requested range\n")
	}
	return 0
}

func reportError(err error) int {
	kind := avframesplit.KindOf(err)
	fmt.Fprintf(os.Stderr, "%s: %v\n", kind, err)
	return kind.ExitCode()
}
