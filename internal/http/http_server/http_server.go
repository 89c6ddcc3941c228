package http_server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"slidecollabgo/internal/collab"
	"slidecollabgo/internal/http/presentationhandler"
	"slidecollabgo/internal/services/presentation"
	"slidecollabgo/internal/services/progress"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type httpServer struct {
	listenPort      uint16
	srv             http.Server
	ln              net.Listener
	presentationSvc presentation.IPresentationService
	progressSvc     progress.IProgressService
	wsSrv           *collab.WsServer
	ctx             context.Context
}

func NewHttpServer(
	ctx context.Context,
	listenPort uint16,
	wsSrv *collab.WsServer,
	presentationSvc presentation.IPresentationService,
	progressSvc progress.IProgressService,
) *httpServer {
	return &httpServer{
		listenPort:      listenPort,
		wsSrv:           wsSrv,
		presentationSvc: presentationSvc,
		progressSvc:     progressSvc,
		ctx:             ctx,
	}
}

func (h *httpServer) Start() error {
	var err error
	listenAddr := fmt.Sprintf(":%d", h.listenPort)
	h.ln, err = net.Listen("tcp", listenAddr)
	if err != nil {
		return err
	}

	routerEngine := gin.New()
	routerEngine.Use(ginzap.RecoveryWithZap(zap.L(), true))

	// Static files for the editor UI
	routerEngine.StaticFile("", "public/index.html")
	routerEngine.StaticFile("/editor.js", "public/editor.js")

	// websocket endpoint for the collaboration channel
	routerEngine.GET("/ws", h.wsSrv.Handle)

	// REST API
	ph := presentationhandler.New(h.presentationSvc, h.progressSvc)
	ph.Register(routerEngine)

	h.srv = http.Server{
		Handler: routerEngine,
	}

	return h.srv.Serve(h.ln)
}

// Dispose gracefully shuts the HTTP server down.
// It waits up to 10 s for in‑flight requests to finish.
func (h *httpServer) Dispose() error {
	// Create a context that times‑out after 10 s.
	ctx, cancel := context.WithTimeout(h.ctx, 10*time.Second)
	defer cancel()

	// Ask the server to shut down.
	if err := h.srv.Shutdown(ctx); err != nil {
		zap.L().Error("http_dispose", zap.Error(err))
		return err // e.g. active conns didn’t finish in time
	}

	// If the context’s deadline expired, log it for observability.
	if ctx.Err() == context.DeadlineExceeded {
		zap.L().Error("http_dispose", zap.Error(errors.New("shutdown timed out")))
		log.Println("shutdown timeout (10 s)")
	}

	return nil
}
