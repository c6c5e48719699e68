package admin

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/linchenxuan/strixwire/network/codec"
	"github.com/linchenxuan/strixwire/network/message"
	"github.com/linchenxuan/strixwire/plugin"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// TypeView is the JSON form of a registered type.
type TypeView struct {
	Index     int    `json:"index"`
	ID        uint32 `json:"id"`
	IDHex     string `json:"idHex"`
	Name      string `json:"name"`
	FullName  string `json:"fullName"`
	Role      string `json:"role"`
	HasStatus bool   `json:"hasStatus"`
}

func newTypeView(pi *message.MsgProtoInfo) TypeView {
	return TypeView{
		Index:     pi.Index,
		ID:        pi.ID,
		IDHex:     "0x" + strings.ToUpper(strconv.FormatUint(uint64(pi.ID), 16)),
		Name:      pi.Name,
		FullName:  string(pi.FullName),
		Role:      pi.MsgReqType.String(),
		HasStatus: pi.HasStatus(),
	}
}

func (s *Server) registerRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"ready":  s.packer.Ready(),
			"uptime": time.Since(s.appeared).String(),
		})
	})

	s.router.GET("/metrics", gin.WrapH(s.metrics))

	s.router.GET("/plugins", func(c *gin.Context) {
		if s.plugins == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "no plugin manager"})
			return
		}
		out := gin.H{}
		for _, typ := range []plugin.Type{plugin.Compressor, plugin.Encryptor, plugin.Metrics} {
			out[string(typ)] = s.plugins.Names(typ)
		}
		c.JSON(http.StatusOK, out)
	})

	s.router.GET("/types", func(c *gin.Context) {
		r, ok := s.registry(c)
		if !ok {
			return
		}
		role := c.Query("role")
		types := make([]TypeView, 0, r.Len())
		for _, pi := range r.All() {
			if role != "" && !strings.EqualFold(role, pi.MsgReqType.String()) {
				continue
			}
			types = append(types, newTypeView(pi))
		}
		c.JSON(http.StatusOK, gin.H{
			"count": len(types),
			"types": types,
		})
	})

	s.router.GET("/types/:id", func(c *gin.Context) {
		pi, ok := s.lookup(c)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, newTypeView(pi))
	})

	s.router.GET("/types/:id/empty", func(c *gin.Context) {
		pi, ok := s.lookup(c)
		if !ok {
			return
		}
		m, err := s.packer.Empty(pi.Type)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		b, err := codec.JSONCodec{}.Encode(m, nil)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Data(http.StatusOK, "application/json; charset=utf-8", b)
	})
}

func (s *Server) registry(c *gin.Context) (*message.Registry, bool) {
	r, err := s.packer.Registry()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return nil, false
	}
	return r, true
}

// lookup resolves the :id parameter, which is a decimal or 0x-prefixed id,
// or a full message name.
func (s *Server) lookup(c *gin.Context) (*message.MsgProtoInfo, bool) {
	r, ok := s.registry(c)
	if !ok {
		return nil, false
	}

	param := c.Param("id")
	var (
		pi    *message.MsgProtoInfo
		found bool
	)
	if id, err := strconv.ParseUint(param, 0, 32); err == nil {
		pi, found = r.ByID(uint32(id))
	} else if errors.Is(err, strconv.ErrRange) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id out of range"})
		return nil, false
	} else {
		pi, found = r.ByName(protoreflect.FullName(param))
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": message.ErrNotRegistered.Error(), "id": param})
		return nil, false
	}
	return pi, true
}
