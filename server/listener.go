package server

import (
	"context"
	"log"
	"net"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Listen binds the HTTP server. For wildcard hosts it attempts a
// dual-stack IPv6 socket first and falls back to IPv4, so the same
// binary works on IPv6-only private networks and IPv4-only hosts.
// A specific host is bound directly.
func Listen(app *fiber.App, host, port string, startupStart time.Time) error {
	if host != "" && host != "0.0.0.0" && host != "::" {
		addr := net.JoinHostPort(host, port)
		log.Printf("HTTP server listening on %s - startup time: %v", addr, time.Since(startupStart))
		return app.Listen(addr)
	}
	return listenWithIPv6Fallback(app, port, startupStart)
}

// listenWithIPv6Fallback attempts to bind on IPv6 first, falling back to IPv4 if needed.
func listenWithIPv6Fallback(app *fiber.App, port string, startupStart time.Time) error {
	addrIPv6 := "[::]:" + port
	log.Printf("Attempting to bind HTTP server on %s (dual-stack)", addrIPv6)

	lc := net.ListenConfig{
		Control: func(network, address string, c syscall.RawConn) error {
			if network != "tcp6" {
				return nil
			}

			var sockErr error
			if controlErr := c.Control(func(fd uintptr) {
				sockErr = syscall.SetsockoptInt(int(fd), syscall.IPPROTO_IPV6, syscall.IPV6_V6ONLY, 0)
			}); controlErr != nil {
				return controlErr
			}
			return sockErr
		},
	}

	ln6, err := lc.Listen(context.Background(), "tcp6", addrIPv6)
	if err == nil {
		log.Printf("HTTP server listening on %s - startup time: %v", addrIPv6, time.Since(startupStart))
		return app.Listener(ln6)
	}

	log.Printf("IPv6 bind on %s failed (%v), falling back to IPv4", addrIPv6, err)

	addrIPv4 := "0.0.0.0:" + port
	ln4, err := net.Listen("tcp4", addrIPv4)
	if err != nil {
		log.Printf("IPv4 bind on %s failed: %v - server cannot start", addrIPv4, err)
		return err
	}

	log.Printf("HTTP server listening on %s - startup time: %v", addrIPv4, time.Since(startupStart))
	return app.Listener(ln4)
}
