package web

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"

	"zwave-go-home/internal/commandclass"
	"zwave-go-home/internal/manager"
	"zwave-go-home/internal/network"
)

func (s *Server) handleAPINetworkInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.net.Info())
}

func (s *Server) handleAPIRefreshNetwork(w http.ResponseWriter, r *http.Request) {
	if err := s.net.RefreshAllNodes(r.Context()); err != nil {
		s.logger.Error("refresh network", "err", err)
		s.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type commandClassView struct {
	commandclass.Class
	Short string `json:"short"`
}

func (s *Server) handleAPIListCommandClasses(w http.ResponseWriter, r *http.Request) {
	all := s.classes.All()
	out := make([]commandClassView, len(all))
	for i, c := range all {
		out[i] = commandClassView{Class: c, Short: c.Short()}
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAPIListNodes(w http.ResponseWriter, r *http.Request) {
	nodes := s.net.Nodes()
	out := make([]network.NodeInfo, len(nodes))
	for i, n := range nodes {
		out[i] = n.Snapshot()
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAPIKnownNodes(w http.ResponseWriter, r *http.Request) {
	records, err := s.net.KnownNodes()
	if err != nil {
		s.logger.Error("list known nodes", "err", err)
		s.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	s.writeJSON(w, http.StatusOK, records)
}

// nodeDetail is a node snapshot with its groups and class names.
type nodeDetail struct {
	network.NodeInfo
	CommandClassNames []string            `json:"command_class_names"`
	Groups            []network.GroupInfo `json:"groups"`
}

func (s *Server) handleAPIGetNode(w http.ResponseWriter, r *http.Request) {
	node, ok := s.nodeFromPath(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, nodeDetail{
		NodeInfo:          node.Snapshot(),
		CommandClassNames: node.CommandClassesAsString(),
		Groups:            groupInfos(node),
	})
}

// handleAPIUpdateNode applies {"field": "value", ...} through SetField.
// Unrecognised fields are ignored.
func (s *Server) handleAPIUpdateNode(w http.ResponseWriter, r *http.Request) {
	node, ok := s.nodeFromPath(w, r)
	if !ok {
		return
	}

	var req map[string]string
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// Apply in a stable order so partial failures are predictable.
	fields := make([]string, 0, len(req))
	for f := range req {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	for _, f := range fields {
		if err := node.SetField(f, req[f]); err != nil {
			s.logger.Error("update node", "node", node.ID(), "field", f, "err", err)
			s.writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
	}

	s.writeJSON(w, http.StatusOK, node.Snapshot())
}

func (s *Server) handleAPIRefreshNode(w http.ResponseWriter, r *http.Request) {
	node, ok := s.nodeFromPath(w, r)
	if !ok {
		return
	}
	if err := node.RefreshInfo(); err != nil {
		s.logger.Error("refresh node", "node", node.ID(), "err", err)
		s.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type testNodeRequest struct {
	Count uint32 `json:"count"`
}

func (s *Server) handleAPITestNode(w http.ResponseWriter, r *http.Request) {
	node, ok := s.nodeFromPath(w, r)
	if !ok {
		return
	}

	req := testNodeRequest{Count: 1}
	if r.ContentLength != 0 {
		if err := decodeBody(w, r, &req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	if req.Count == 0 || req.Count > 100 {
		s.writeError(w, http.StatusBadRequest, "count must be between 1 and 100")
		return
	}

	if err := node.Test(req.Count); err != nil {
		s.logger.Error("test node", "node", node.ID(), "err", err)
		s.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"count":  fmt.Sprintf("%d", req.Count),
	})
}

type setConfigRequest struct {
	Param uint8 `json:"param"`
	Value int32 `json:"value"`
	Size  uint8 `json:"size"`
}

func (s *Server) handleAPISetConfig(w http.ResponseWriter, r *http.Request) {
	node, ok := s.nodeFromPath(w, r)
	if !ok {
		return
	}

	var req setConfigRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := node.SetConfigParam(req.Param, req.Value, req.Size); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type requestConfigRequest struct {
	Param *uint8 `json:"param"`
}

// handleAPIRequestConfig asks for one parameter, or all of them when the
// body is empty.
func (s *Server) handleAPIRequestConfig(w http.ResponseWriter, r *http.Request) {
	node, ok := s.nodeFromPath(w, r)
	if !ok {
		return
	}

	var req requestConfigRequest
	if r.ContentLength != 0 {
		if err := decodeBody(w, r, &req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	var err error
	if req.Param != nil {
		err = node.RequestConfigParam(*req.Param)
	} else {
		err = node.RequestAllConfigParams()
	}
	if err != nil {
		s.logger.Error("request config", "node", node.ID(), "err", err)
		s.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleAPIListValues returns the node's values matching the query filters,
// sorted by value ID. With grouped=true the result is keyed by command class.
func (s *Server) handleAPIListValues(w http.ResponseWriter, r *http.Request) {
	node, ok := s.nodeFromPath(w, r)
	if !ok {
		return
	}

	opts, err := s.valueFilters(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if grouped, _ := strconv.ParseBool(r.URL.Query().Get("grouped")); grouped {
		out := make(map[uint8][]*network.Value)
		for cc, values := range node.ValuesByCommandClass(opts...) {
			out[cc] = sortedValues(values)
		}
		s.writeJSON(w, http.StatusOK, out)
		return
	}

	s.writeJSON(w, http.StatusOK, sortedValues(node.Values(opts...)))
}

// valueFilters turns query parameters into value filters. command_class
// accepts anything the registry can resolve.
func (s *Server) valueFilters(r *http.Request) ([]network.FilterOption, error) {
	q := r.URL.Query()
	var opts []network.FilterOption

	if v := q.Get("command_class"); v != "" {
		cc, err := s.classes.Resolve(v)
		if err != nil {
			return nil, err
		}
		opts = append(opts, network.ByCommandClass(cc))
	}
	if v := q.Get("genre"); v != "" {
		g, err := manager.ParseGenre(v)
		if err != nil {
			return nil, err
		}
		opts = append(opts, network.ByGenre(g))
	}
	if v := q.Get("type"); v != "" {
		t, err := manager.ParseValueType(v)
		if err != nil {
			return nil, err
		}
		opts = append(opts, network.ByType(t))
	}
	if v := q.Get("readonly"); v != "" {
		ro, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid readonly %q", v)
		}
		opts = append(opts, network.ByReadOnly(ro))
	}
	if v := q.Get("writeonly"); v != "" {
		wo, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid writeonly %q", v)
		}
		opts = append(opts, network.ByWriteOnly(wo))
	}
	return opts, nil
}

type setValueRequest struct {
	Data any `json:"data"`
}

func (s *Server) handleAPISetValue(w http.ResponseWriter, r *http.Request) {
	node, v, ok := s.valueFromPath(w, r)
	if !ok {
		return
	}

	var req setValueRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := node.SetValue(v.ID, req.Data); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, _ := node.Value(v.ID)
	s.writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleAPIRemoveValue(w http.ResponseWriter, r *http.Request) {
	node, v, ok := s.valueFromPath(w, r)
	if !ok {
		return
	}
	if !node.RemoveValue(v.ID) {
		s.writeError(w, http.StatusNotFound, "value not found")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAPIRefreshValue(w http.ResponseWriter, r *http.Request) {
	node, v, ok := s.valueFromPath(w, r)
	if !ok {
		return
	}
	if err := node.RefreshValue(v.ID); err != nil {
		s.logger.Error("refresh value", "node", node.ID(), "value", v.ID, "err", err)
		s.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAPIListGroups(w http.ResponseWriter, r *http.Request) {
	node, ok := s.nodeFromPath(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, groupInfos(node))
}

type associationRequest struct {
	NodeID uint8 `json:"node_id"`
}

func (s *Server) handleAPIAddAssociation(w http.ResponseWriter, r *http.Request) {
	g, ok := s.groupFromPath(w, r)
	if !ok {
		return
	}

	var req associationRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.NodeID == 0 {
		s.writeError(w, http.StatusBadRequest, "node_id is required")
		return
	}

	if err := g.AddAssociation(req.NodeID); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, g.Info())
}

func (s *Server) handleAPIRemoveAssociation(w http.ResponseWriter, r *http.Request) {
	g, ok := s.groupFromPath(w, r)
	if !ok {
		return
	}

	target, err := strconv.ParseUint(r.PathValue("target"), 10, 8)
	if err != nil || target == 0 {
		s.writeError(w, http.StatusBadRequest, "invalid target node")
		return
	}

	if err := g.RemoveAssociation(uint8(target)); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, g.Info())
}

// nodeFromPath resolves the {id} path parameter, writing the error response
// when it does not name a known node.
func (s *Server) nodeFromPath(w http.ResponseWriter, r *http.Request) (*network.Node, bool) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 8)
	if err != nil || id == 0 {
		s.writeError(w, http.StatusBadRequest, "invalid node id")
		return nil, false
	}
	node, ok := s.net.Node(uint8(id))
	if !ok {
		s.writeError(w, http.StatusNotFound, "node not found")
		return nil, false
	}
	return node, true
}

func (s *Server) valueFromPath(w http.ResponseWriter, r *http.Request) (*network.Node, *network.Value, bool) {
	node, ok := s.nodeFromPath(w, r)
	if !ok {
		return nil, nil, false
	}
	id, err := strconv.ParseUint(r.PathValue("value"), 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid value id")
		return nil, nil, false
	}
	v, ok := node.Value(network.ValueID(id))
	if !ok {
		s.writeError(w, http.StatusNotFound, "value not found")
		return nil, nil, false
	}
	return node, v, true
}

func (s *Server) groupFromPath(w http.ResponseWriter, r *http.Request) (*network.Group, bool) {
	node, ok := s.nodeFromPath(w, r)
	if !ok {
		return nil, false
	}
	idx, err := strconv.ParseUint(r.PathValue("group"), 10, 8)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid group index")
		return nil, false
	}
	g, ok := node.Group(uint8(idx))
	if !ok {
		s.writeError(w, http.StatusNotFound, "group not found")
		return nil, false
	}
	return g, true
}

func groupInfos(node *network.Node) []network.GroupInfo {
	groups := node.Groups()
	out := make([]network.GroupInfo, len(groups))
	for i, g := range groups {
		out[i] = g.Info()
	}
	return out
}

func sortedValues(values map[network.ValueID]*network.Value) []*network.Value {
	out := make([]*network.Value, 0, len(values))
	for _, v := range values {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
