package server

import (
	"bubble-relay/domain"
	"net/http"
)

func (s *Server) createClient(w http.ResponseWriter, r *http.Request) {
	requester, err := s.requester(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var body clientKeysRequest
	if err := s.decode(w, r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	id, err := s.services.Clients.CreateClient(r.Context(), requester, domain.CreateClientCommand{
		SigningKey: body.SigningKey,
		Signature:  body.Signature,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusCreated, clientResponse{ClientUUID: id.String()})
}

func (s *Server) getClient(w http.ResponseWriter, r *http.Request) {
	client, err := s.services.Clients.GetClient(r.Context(), r.PathValue("uuid"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, toPublicClient(client))
}

func (s *Server) updateClient(w http.ResponseWriter, r *http.Request) {
	requester, err := s.requester(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var body clientKeysRequest
	if err := s.decode(w, r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	id, err := s.services.Clients.UpdateClient(r.Context(), requester, domain.UpdateClientCommand{
		ClientID:   r.PathValue("uuid"),
		SigningKey: body.SigningKey,
		Signature:  body.Signature,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, clientResponse{ClientUUID: id.String()})
}

func (s *Server) deleteClient(w http.ResponseWriter, r *http.Request) {
	requester, err := s.requester(r)
	if err == nil {
		err = s.services.Clients.DeleteClient(r.Context(), requester, r.PathValue("uuid"))
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, nil)
}

func (s *Server) replaceKeyPackages(w http.ResponseWriter, r *http.Request) {
	requester, err := s.requester(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var body replaceKeyPackagesRequest
	if err := s.decode(w, r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	err = s.services.KeyPackages.ReplaceKeyPackages(r.Context(), requester, domain.ReplaceKeyPackagesCommand{
		ClientID:    r.PathValue("uuid"),
		KeyPackages: body.KeyPackages,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, nil)
}

func (s *Server) fetchKeyPackage(w http.ResponseWriter, r *http.Request) {
	kp, err := s.services.KeyPackages.FetchKeyPackage(r.Context(), r.PathValue("uuid"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, keyPackageResponse{KeyPackage: kp.Payload})
}

func (s *Server) countKeyPackages(w http.ResponseWriter, r *http.Request) {
	requester, err := s.requester(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	count, err := s.services.KeyPackages.CountKeyPackages(r.Context(), requester, r.PathValue("uuid"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, countResponse{Count: count})
}
