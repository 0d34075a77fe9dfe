package client

import (
	"net/http"

	"github.com/cloudflare/cfssl/log"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upGrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// 使用WebSocket向前端推送合约事件
func (s *Server) getLog(c *gin.Context) {
	// 升级请求为WebSocket协议
	ws, err := upGrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Info("Upgrade failed")
		return
	}
	defer ws.Close()

	logs, cancel := s.hub.Subscribe()
	defer cancel()

	// 客户端断开时结束推送
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case l, ok := <-logs:
			if !ok {
				return
			}
			if err := ws.WriteJSON(l); err != nil {
				log.Info(err)
				return
			}
		case <-closed:
			return
		}
	}
}
