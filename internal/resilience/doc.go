/*
Package resilience provides a circuit breaker guarding outbound calls.

The breaker has three states. Closed passes requests through while counting
consecutive failures; Open fails fast until the reset timeout elapses;
Half-Open admits a limited number of probes and closes again once they
succeed.

	breaker := resilience.New("downstream", resilience.Config{
		FailureThreshold: 5,
		ResetTimeout:     30 * time.Second,
		HalfOpenProbes:   3,
	})

	result, err := breaker.Execute(func() (interface{}, error) {
		return client.Call()
	})
*/
package resilience
