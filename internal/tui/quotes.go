package tui

type quote struct {
	text   string
	author string
}

var quotes = []quote{
	{"The only way to do great work is to love what you do.", "Steve Jobs"},
	{"Success is not final, failure is not fatal: it is the courage to continue that counts.", "Winston Churchill"},
	{"The future depends on what you do today.", "Mahatma Gandhi"},
	{"Don't watch the clock; do what it does. Keep going.", "Sam Levenson"},
	{"The harder you work for something, the greater you'll feel when you achieve it.", "Unknown"},
	{"Success is walking from failure to failure with no loss of enthusiasm.", "Winston Churchill"},
	{"The difference between ordinary and extraordinary is that little extra.", "Jimmy Johnson"},
	{"Hard work beats talent when talent doesn't work hard.", "Tim Notke"},
	{"The only place where success comes before work is in the dictionary.", "Vidal Sassoon"},
	{"Success is the sum of small efforts, repeated day in and day out.", "Robert Collier"},
	{"The road to success and the road to failure are almost exactly the same.", "Colin R. Davis"},
	{"Success is not in what you have, but who you are.", "Bo Bennett"},
	{"The only limit to our realization of tomorrow is our doubts of today.", "Franklin D. Roosevelt"},
	{"Success is not just about making money. It's about making a difference.", "Unknown"},
	{"The harder you work, the luckier you get.", "Gary Player"},
	{"Success is not the key to happiness. Happiness is the key to success.", "Albert Schweitzer"},
	{"The only way to achieve the impossible is to believe it is possible.", "Charles Kingsleigh"},
	{"Success is not final, failure is not fatal: it is the courage to continue that counts.", "Winston Churchill"},
	{"The road to success is always under construction.", "Lily Tomlin"},
	{"Success is not about being the best. It's about being better than you were yesterday.", "Unknown"},
	{"The only person you are destined to become is the person you decide to be.", "Ralph Waldo Emerson"},
	{"Success is not measured by what you accomplish, but by the opposition you have encountered.", "Dale Carnegie"},
	{"The only limit to the height of your achievements is the reach of your dreams.", "Michelle Obama"},
	{"Success is not about the destination, it's about the journey.", "Zig Ziglar"},
	{"The only way to do great work is to be passionate about what you do.", "Steve Jobs"},
	{"Success is not about being perfect, it's about being better.", "Unknown"},
	{"The only person you should try to be better than is the person you were yesterday.", "Unknown"},
	{"Success is not about how much money you make, it's about the difference you make in people's lives.", "Michelle Obama"},
	{"The only way to achieve the impossible is to believe it is possible.", "Charles Kingsleigh"},
	{"Success is not about being the best, it's about being your best.", "Unknown"},
}

// quoteFor picks the quote shown for the n-th session.
func quoteFor(n int) quote {
	if n < 0 {
		n = -n
	}
	return quotes[n%len(quotes)]
}
