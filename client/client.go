package client

import (
	"github.com/cloudflare/cfssl/log"
	"github.com/fundme/contract"
	"github.com/fundme/contract/fundme"
	"github.com/fundme/event"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/unrolled/secure"
)

type Options struct {
	SSLRedirect bool   // 重定向为https
	SSLHost     string // 重定向的目标host
}

// Server 对外提供合约调用和链上查询的 http 接口
type Server struct {
	rt     *contract.Runtime
	fundMe *fundme.Client
	hub    *event.Hub
	opts   Options
}

func NewServer(rt *contract.Runtime, fm *fundme.Client, hub *event.Hub, opts Options) *Server {
	return &Server{rt: rt, fundMe: fm, hub: hub, opts: opts}
}

func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(Cors())            // 使用跨域组件
	r.Use(s.SecureHandler()) // 安全响应头
	r.POST("/fund", s.fund)                       // 存入
	r.POST("/withdraw", s.withdraw)               // 取款
	r.POST("/cheaperWithdraw", s.cheaperWithdraw) // 省gas取款
	r.POST("/postTran", s.postTran)               // 提交一笔交易
	r.GET("/priceFeed", s.priceFeed)
	r.GET("/owner", s.owner)
	r.GET("/funder/:index", s.funder)
	r.GET("/amountFunded/:address", s.amountFunded)
	r.GET("/balance/:address", s.balance)
	r.GET("/receipt/:id", s.receipt)
	r.GET("/block/:height", s.block)
	r.GET("/proof/:address", s.proof) // 账户状态证明
	r.GET("/gasReport", s.gasReport)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/getLog", s.getLog) // 与前端建立websocket
	return r
}

// 监听用户请求
func (s *Server) ListenRequest(addr string) error {
	log.Infof("client api listening on %s, FundMe at %s", addr, s.fundMe.Address.Hex())
	return s.Router().Run(addr)
}

func (s *Server) SecureHandler() gin.HandlerFunc {
	secureMiddleware := secure.New(secure.Options{
		SSLRedirect:        s.opts.SSLRedirect,
		SSLHost:            s.opts.SSLHost,
		FrameDeny:          true,
		ContentTypeNosniff: true,
		IsDevelopment:      !s.opts.SSLRedirect,
	})
	return func(c *gin.Context) {
		err := secureMiddleware.Process(c.Writer, c.Request)

		// If there was an error, do not continue.
		if err != nil {
			c.Abort()
			return
		}
		// Avoid header rewrite if response is a redirection.
		if status := c.Writer.Status(); status > 300 && status < 399 {
			c.Abort()
			return
		}
		c.Next()
	}
}
