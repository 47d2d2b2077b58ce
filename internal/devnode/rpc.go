package devnode

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"ringchat/internal/crypto"
	"ringchat/internal/domain"
	"ringchat/internal/node"
)

const (
	offerPrefix  = "devnode-offer:"
	answerPrefix = "devnode-answer:"
)

func rpcErr(code int, msg string) *node.Error { return &node.Error{Code: code, Message: msg} }

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var req node.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeRPC(w, node.Response{JSONRPC: "2.0", Error: rpcErr(node.CodeParseError, err.Error())})
		return
	}
	resp := node.Response{JSONRPC: "2.0", ID: req.ID}
	result, rerr := s.dispatch(r.Header.Get(node.SessionHeader), req)
	if rerr != nil {
		resp.Error = rerr
		s.log.Debug("rpc failed", zap.String("method", req.Method), zap.Int("code", rerr.Code), zap.String("msg", rerr.Message))
	} else if result != nil {
		raw, err := json.Marshal(result)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		resp.Result = raw
	}
	writeRPC(w, resp)
}

func writeRPC(w http.ResponseWriter, resp node.Response) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func decodeParams(req node.Request, out any) *node.Error {
	if len(req.Params) == 0 {
		return rpcErr(node.CodeInvalidParams, "missing params")
	}
	if err := json.Unmarshal(req.Params, out); err != nil {
		return rpcErr(node.CodeInvalidParams, err.Error())
	}
	return nil
}

func (s *Server) dispatch(token string, req node.Request) (any, *node.Error) {
	if req.JSONRPC != "2.0" {
		return nil, rpcErr(node.CodeInvalidRequest, "jsonrpc must be 2.0")
	}
	if req.Method == node.MethodOpenSession {
		var p node.OpenParams
		if e := decodeParams(req, &p); e != nil {
			return nil, e
		}
		return s.rpcOpen(p)
	}

	sess, ok := s.lookup(token)
	if !ok {
		return nil, rpcErr(node.CodeUnauthorized, "unknown session")
	}
	switch req.Method {
	case node.MethodCloseSession:
		s.closeSession(sess)
		return nil, nil
	case node.MethodListPeers:
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.peersLocked(sess.address), nil
	case node.MethodConnect:
		var p node.PeerParams
		if e := decodeParams(req, &p); e != nil {
			return nil, e
		}
		return nil, s.rpcConnect(sess, domain.NormalizeAddress(string(p.Address)))
	case node.MethodDisconnect:
		var p node.PeerParams
		if e := decodeParams(req, &p); e != nil {
			return nil, e
		}
		return nil, s.rpcDisconnect(sess, domain.NormalizeAddress(string(p.Address)))
	case node.MethodSend:
		var p node.SendParams
		if e := decodeParams(req, &p); e != nil {
			return nil, e
		}
		return nil, s.rpcSend(sess, domain.NormalizeAddress(string(p.Address)), p.Payload)
	case node.MethodCreateOffer:
		var p node.PeerParams
		if e := decodeParams(req, &p); e != nil {
			return nil, e
		}
		return s.rpcOffer(sess, domain.NormalizeAddress(string(p.Address)))
	case node.MethodAnswerOffer:
		var p node.BlobParams
		if e := decodeParams(req, &p); e != nil {
			return nil, e
		}
		return s.rpcAnswer(sess, p.Blob)
	case node.MethodAcceptAnswer:
		var p node.BlobParams
		if e := decodeParams(req, &p); e != nil {
			return nil, e
		}
		return nil, s.rpcAccept(sess, p.Blob)
	default:
		return nil, rpcErr(node.CodeMethodNotFound, req.Method)
	}
}

func (s *Server) rpcOpen(p node.OpenParams) (any, *node.Error) {
	addr := domain.NormalizeAddress(string(p.Address))
	if !domain.ValidAddress(string(addr)) {
		return nil, rpcErr(node.CodeInvalidParams, "invalid address")
	}
	if p.AddressType != domain.AddressTypeEIP191 {
		return nil, rpcErr(node.CodeInvalidParams, "unsupported address type "+p.AddressType)
	}
	sig, err := hexutil.Decode(p.Signature)
	if err != nil {
		return nil, rpcErr(node.CodeInvalidParams, "signature: "+err.Error())
	}
	if !crypto.VerifyText(addr, []byte(p.Proof), sig) {
		return nil, rpcErr(node.CodeUnauthorized, "proof not signed by address")
	}
	return node.OpenResult{Session: s.openSession(addr, p.RelayURL)}, nil
}

func (s *Server) rpcConnect(sess *session, target domain.Address) *node.Error {
	if target == sess.address {
		return rpcErr(node.CodeInvalidParams, "cannot connect to self")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byAddr[target]; !ok {
		return rpcErr(node.CodeNotFound, "peer not reachable")
	}
	s.setLinkLocked(sess.address, target, "connected")
	return nil
}

func (s *Server) rpcDisconnect(sess *session, target domain.Address) *node.Error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.linkStateLocked(sess.address, target) == "" {
		return nil
	}
	s.setLinkLocked(sess.address, target, "disconnected")
	return nil
}

func (s *Server) rpcSend(sess *session, target domain.Address, payload []byte) *node.Error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.linkStateLocked(sess.address, target) != "connected" {
		return rpcErr(node.CodeConflict, "no open transport to "+target.String())
	}
	if _, ok := s.byAddr[target]; !ok {
		return rpcErr(node.CodeNotFound, "peer not reachable")
	}
	s.pushLocked(target, node.Event{Type: node.EventMessage, From: sess.address, To: target, Payload: payload})
	return nil
}

func (s *Server) rpcOffer(sess *session, target domain.Address) (any, *node.Error) {
	if target == sess.address {
		return nil, rpcErr(node.CodeInvalidParams, "cannot offer to self")
	}
	id := uuid.NewString()
	s.mu.Lock()
	s.offers[id] = pendingOffer{from: sess.address, target: target}
	s.mu.Unlock()
	return node.BlobResult{Blob: offerPrefix + id}, nil
}

func (s *Server) rpcAnswer(sess *session, blob string) (any, *node.Error) {
	id, ok := strings.CutPrefix(blob, offerPrefix)
	if !ok {
		return nil, rpcErr(node.CodeInvalidParams, "not an offer")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	off, ok := s.offers[id]
	if !ok {
		return nil, rpcErr(node.CodeNotFound, "unknown offer")
	}
	if off.target != "" && off.target != sess.address {
		return nil, rpcErr(node.CodeInvalidParams, "offer is for another peer")
	}
	if off.from == sess.address {
		return nil, rpcErr(node.CodeInvalidParams, "cannot answer own offer")
	}
	answerID := uuid.NewString()
	s.answers[answerID] = pendingAnswer{offerID: id, from: sess.address}
	s.setLinkLocked(sess.address, off.from, "connecting")
	return node.BlobResult{Blob: answerPrefix + answerID}, nil
}

func (s *Server) rpcAccept(sess *session, blob string) *node.Error {
	id, ok := strings.CutPrefix(blob, answerPrefix)
	if !ok {
		return rpcErr(node.CodeInvalidParams, "not an answer")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ans, ok := s.answers[id]
	if !ok {
		return rpcErr(node.CodeNotFound, "unknown answer")
	}
	off := s.offers[ans.offerID]
	if off.from != sess.address {
		return rpcErr(node.CodeInvalidParams, "answer is for another peer's offer")
	}
	delete(s.answers, id)
	delete(s.offers, ans.offerID)
	s.setLinkLocked(sess.address, ans.from, "connected")
	return nil
}
