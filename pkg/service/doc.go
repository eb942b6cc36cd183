// Package service runs streaming sessions on top of the transport.
//
// # ReceiverService
//
// ReceiverService listens on one endpoint, optionally advertises itself
// with mDNS, and answers every Offer a sender opens a stream with. Accepted
// sessions are drained and counted until the sender's EndOfStream, which
// the receiver acknowledges with its own totals.
//
//	config := service.DefaultReceiverConfig()
//	config.Endpoint = ipaddr.Endpoint{Address: addr, Port: transport.DefaultPort}
//	config.Credentials = creds
//
//	svc, err := service.NewReceiverService(config)
//	svc.Start(ctx)
//	defer svc.Stop()
//
// # Sender
//
// Sender connects to one receiver, offers a session, and streams a media
// file as MediaChunk messages, looping until cancelled unless told not to.
//
//	sender, err := service.NewSender(service.DefaultSenderConfig())
//	stats, err := sender.Run(ctx, endpoint, file, "video.webm")
package service
