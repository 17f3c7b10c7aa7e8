package server

import (
	"bubble-relay/domain"
	"net/http"

	"github.com/samber/lo"
)

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var body registerRequest
	if err := s.decode(w, r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	id, err := s.services.Auth.Register(r.Context(), domain.RegisterCommand{
		Username:    body.Username,
		Email:       body.Email,
		Password:    body.Password,
		Name:        body.Name,
		IdentityKey: body.Identity,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusCreated, registerResponse{UserUUID: id.String()})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var body loginRequest
	if err := s.decode(w, r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	result, err := s.services.Auth.Login(r.Context(), body.UsernameOrEmail, body.Password)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, loginResponse{
		UserUUID:  result.UserID.String(),
		Bearer:    result.Token,
		ExpiresAt: result.ExpiresAt.Unix(),
	})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	requester, err := s.requester(r)
	if err == nil {
		err = s.services.Auth.Logout(r.Context(), requester)
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, nil)
}

func (s *Server) searchUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.services.Users.SearchUsers(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, searchResponse{
		Users: lo.Map(users, func(u domain.PublicUser, _ int) publicUser { return toPublicUser(u) }),
	})
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.services.Users.GetUser(r.Context(), r.PathValue("uuid"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, toPublicUser(user))
}

func (s *Server) updateProfile(w http.ResponseWriter, r *http.Request) {
	requester, err := s.requester(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var body updateProfileRequest
	if err := s.decode(w, r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	user, err := s.services.Users.UpdateProfile(r.Context(), requester, domain.UpdateProfileCommand{
		Name:            body.Name,
		PrimaryClientID: body.PrimaryClientUUID,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, toPublicUser(user))
}

func (s *Server) updateIdentity(w http.ResponseWriter, r *http.Request) {
	requester, err := s.requester(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var body updateIdentityRequest
	if err := s.decode(w, r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.services.Users.PublishIdentity(r.Context(), requester, body.Identity); err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, nil)
}

func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request) {
	requester, err := s.requester(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var body deleteUserRequest
	if err := s.decode(w, r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.services.Users.DeleteUser(r.Context(), requester, body.Password); err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, nil)
}

func (s *Server) listClients(w http.ResponseWriter, r *http.Request) {
	clients, err := s.services.Clients.ListClients(r.Context(), r.PathValue("uuid"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, clientsResponse{
		Clients: lo.Map(clients, func(c domain.Client, _ int) publicClient { return toPublicClient(c) }),
	})
}
