package client

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"

	"github.com/cloudflare/cfssl/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/fundme/chain"
	"github.com/fundme/contract/system"
	"github.com/fundme/levelDB"
	"github.com/fundme/meta"
	"github.com/fundme/oracle"
	"github.com/fundme/util"
	"github.com/gin-gonic/gin"
)

func Cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		method := c.Request.Method

		origin := c.Request.Header.Get("Origin")

		if origin != "" {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Headers", "Content-Type,AccessToken,X-CSRF-Token, Authorization") //自定义 Header
			c.Header("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
			c.Header("Access-Control-Expose-Headers", "Content-Length, Access-Control-Allow-Origin, Access-Control-Allow-Headers, Content-Type")
			c.Header("Access-Control-Allow-Credentials", "true")
		}

		if method == "OPTIONS" {
			c.Header("Access-Control-Allow-Origin", "*")
			c.Header("Access-Control-Allow-Headers", "Content-Type,AccessToken,X-CSRF-Token, Authorization") //自定义 Header
			c.Header("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
			c.Header("Access-Control-Expose-Headers", "Content-Length, Access-Control-Allow-Origin, Access-Control-Allow-Headers, Content-Type")
			c.Header("Access-Control-Allow-Credentials", "true")
			c.AbortWithStatus(http.StatusNoContent)
		}

		c.Next()
	}
}

// 存入
func (s *Server) fund(ctx *gin.Context) {
	s.invokeFundMe(ctx, "fund")
}

// 取款
func (s *Server) withdraw(ctx *gin.Context) {
	s.invokeFundMe(ctx, "withdraw")
}

func (s *Server) cheaperWithdraw(ctx *gin.Context) {
	s.invokeFundMe(ctx, "cheaperWithdraw")
}

func (s *Server) invokeFundMe(ctx *gin.Context, method string) {
	pt, tx, ok := s.bindTran(ctx)
	if !ok {
		return
	}
	log.Infof("[client] %s 调用 %s, value %s", pt.From, method, tx.Value)
	tx.To = s.fundMe.Address
	tx.Method = method
	tx.Type = meta.Invoke
	r, err := s.rt.Execute(tx)
	writeReceipt(ctx, r, err)
}

// 通用交易：method 为空时是普通转账
func (s *Server) postTran(ctx *gin.Context) {
	pt, tx, ok := s.bindTran(ctx)
	if !ok {
		return
	}
	if !common.IsHexAddress(pt.To) {
		ctx.JSON(http.StatusOK, errResponse("目标地址格式错误"))
		return
	}
	tx.To = common.HexToAddress(pt.To)
	tx.Method = pt.Method
	tx.Args = pt.Args
	tx.Type = meta.Invoke
	if pt.Method == "" {
		tx.Type = meta.Transfer
	}
	r, err := s.rt.Execute(tx)
	writeReceipt(ctx, r, err)
}

func (s *Server) priceFeed(ctx *gin.Context) {
	feed, err := s.fundMe.GetPriceFeed()
	if err != nil {
		ctx.JSON(http.StatusOK, errResponse(err.Error()))
		return
	}
	price, err := oracle.GetPrice(ctx.Request.Context(), system.NewQueryFeed(s.rt, feed))
	data := gin.H{"address": feed.Hex()}
	if err == nil {
		data["price"] = price.String()
	} else {
		data["priceError"] = err.Error()
	}
	ctx.JSON(http.StatusOK, goodResponse(data))
}

func (s *Server) owner(ctx *gin.Context) {
	owner, err := s.fundMe.GetOwner()
	if err != nil {
		ctx.JSON(http.StatusOK, errResponse(err.Error()))
		return
	}
	ctx.JSON(http.StatusOK, goodResponse(owner.Hex()))
}

func (s *Server) funder(ctx *gin.Context) {
	index, err := strconv.ParseUint(ctx.Param("index"), 10, 64)
	if err != nil {
		ctx.JSON(http.StatusOK, errResponse("index格式错误"))
		return
	}
	funder, err := s.fundMe.GetFunder(index)
	if err != nil {
		ctx.JSON(http.StatusOK, errResponse(err.Error()))
		return
	}
	ctx.JSON(http.StatusOK, goodResponse(funder.Hex()))
}

func (s *Server) amountFunded(ctx *gin.Context) {
	address, ok := paramAddress(ctx)
	if !ok {
		return
	}
	amount, err := s.fundMe.GetAddressToAmountFunded(address)
	if err != nil {
		ctx.JSON(http.StatusOK, errResponse(err.Error()))
		return
	}
	ctx.JSON(http.StatusOK, goodResponse(amount.String()))
}

func (s *Server) balance(ctx *gin.Context) {
	address, ok := paramAddress(ctx)
	if !ok {
		return
	}
	ctx.JSON(http.StatusOK, goodResponse(s.rt.Balance(address).String()))
}

func (s *Server) receipt(ctx *gin.Context) {
	r, err := s.rt.Receipt(ctx.Param("id"))
	if errors.Is(err, levelDB.ErrNotFound) {
		ctx.JSON(http.StatusOK, errResponse("交易不存在"))
		return
	}
	if err != nil {
		ctx.JSON(http.StatusOK, errResponse(err.Error()))
		return
	}
	ctx.JSON(http.StatusOK, goodResponse(r))
}

func (s *Server) block(ctx *gin.Context) {
	height, err := strconv.Atoi(ctx.Param("height"))
	if err != nil {
		ctx.JSON(http.StatusOK, errResponse("height格式错误"))
		return
	}
	b, err := s.rt.Block(height)
	if errors.Is(err, levelDB.ErrNotFound) {
		ctx.JSON(http.StatusOK, errResponse("区块不存在"))
		return
	}
	if err != nil {
		ctx.JSON(http.StatusOK, errResponse(err.Error()))
		return
	}
	ctx.JSON(http.StatusOK, goodResponse(b))
}

func (s *Server) proof(ctx *gin.Context) {
	address, ok := paramAddress(ctx)
	if !ok {
		return
	}
	acc, proof, err := s.rt.Proof(address)
	if err != nil {
		ctx.JSON(http.StatusOK, errResponse(err.Error()))
		return
	}
	b, err := s.rt.Block(s.rt.Height())
	if err != nil {
		ctx.JSON(http.StatusOK, errResponse(err.Error()))
		return
	}
	ctx.JSON(http.StatusOK, goodResponse(gin.H{
		"account":   acc,
		"proof":     proof,
		"stateRoot": b.StateRoot.Hex(),
	}))
}

// gas统计表
func (s *Server) gasReport(ctx *gin.Context) {
	receipts, err := s.rt.Receipts()
	if err != nil {
		ctx.JSON(http.StatusOK, errResponse(err.Error()))
		return
	}
	var buf bytes.Buffer
	if err := chain.WriteGasReport(&buf, chain.BuildGasReport(receipts), chain.ReportOptions{}); err != nil {
		ctx.JSON(http.StatusOK, errResponse(err.Error()))
		return
	}
	ctx.String(http.StatusOK, buf.String())
}

// 解析并检查交易参数，发起地址必须与签名恢复出的地址一致
func (s *Server) bindTran(ctx *gin.Context) (meta.PostTran, meta.Transaction, bool) {
	pt := meta.PostTran{}
	if err := ctx.ShouldBindJSON(&pt); err != nil {
		log.Errorf("[bindTran] json decode err: %s", err)
		ctx.JSON(http.StatusOK, errResponse("请求格式错误"))
		return pt, meta.Transaction{}, false
	}
	if msg, ok := checkTranParameters(&pt); !ok {
		log.Info(msg)
		ctx.JSON(http.StatusOK, errResponse(msg))
		return pt, meta.Transaction{}, false
	}
	from := common.HexToAddress(pt.From)
	signer, err := util.RecoverTranSender(pt)
	if err != nil || signer != from {
		log.Warningf("[bindTran] signature of %s rejected", pt.From)
		ctx.JSON(http.StatusOK, errResponse("签名错误"))
		return pt, meta.Transaction{}, false
	}
	value, _ := util.ParseAmount(pt.Value)
	nonce := pt.Nonce
	return pt, meta.Transaction{
		From:     from,
		Value:    value,
		GasLimit: pt.GasLimit,
		Nonce:    &nonce,
	}, true
}

// 检查交易参数
func checkTranParameters(pt *meta.PostTran) (string, bool) {
	if !common.IsHexAddress(pt.From) {
		return "发起地址格式错误", false
	}
	if _, ok := util.ParseAmount(pt.Value); !ok {
		return "转账金额格式错误", false
	}
	if pt.Signature == "" {
		return "缺少签名", false
	}
	return "", true
}

func paramAddress(ctx *gin.Context) (common.Address, bool) {
	a := ctx.Param("address")
	if !common.IsHexAddress(a) {
		ctx.JSON(http.StatusOK, errResponse("地址格式错误"))
		return common.Address{}, false
	}
	return common.HexToAddress(a), true
}

// 交易已上链时总是返回回执，执行失败时同时返回错误信息
func writeReceipt(ctx *gin.Context, r meta.Receipt, err error) {
	if err != nil {
		hr := errResponse(err.Error())
		if r.TxId != "" {
			hr.Data = r
		}
		ctx.JSON(http.StatusOK, hr)
		return
	}
	ctx.JSON(http.StatusOK, goodResponse(r))
}

// 正常返回
func goodResponse(data interface{}) meta.HttpResponse {
	res := meta.HttpResponse{
		Data: data,
		Code: 20000,
	}
	return res
}

// 出现异常，返回异常信息
func errResponse(errMsg string) meta.HttpResponse {
	res := meta.HttpResponse{
		Error: errMsg,
		Data:  "",
		Code:  20000,
	}
	return res
}
