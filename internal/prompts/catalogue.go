package prompts

var fluencyPhrases = []Prompt{
	{Text: "What do you think about this?", Category: "opinion"},
	{Text: "I totally agree with you.", Category: "opinion"},
	{Text: "That makes a lot of sense.", Category: "opinion"},
	{Text: "I see what you mean.", Category: "understanding"},
	{Text: "Could you say that again?", Category: "clarification"},
	{Text: "I was wondering if you could help me.", Category: "request"},
	{Text: "That's actually a great point.", Category: "reaction"},
	{Text: "I hadn't thought of it that way.", Category: "reaction"},
	{Text: "It depends on the situation.", Category: "nuance"},
	{Text: "To be honest, I'm not sure.", Category: "honesty"},
	{Text: "Can you walk me through that?", Category: "clarification"},
	{Text: "Let me get back to you on that.", Category: "delay"},
	{Text: "I'm really into this idea.", Category: "enthusiasm"},
	{Text: "We should definitely try that.", Category: "suggestion"},
	{Text: "How long have you been doing this?", Category: "question"},
	{Text: "I've been working on my English a lot lately.", Category: "personal"},
	{Text: "What's your take on this situation?", Category: "opinion"},
	{Text: "That's pretty much what I was thinking.", Category: "agreement"},
	{Text: "I'm getting better at this every day.", Category: "progress"},
	{Text: "Can we go over that one more time?", Category: "clarification"},
	{Text: "I really appreciate your patience.", Category: "gratitude"},
	{Text: "Let me think about that for a second.", Category: "filler"},
	{Text: "That's a tough one.", Category: "reaction"},
	{Text: "I've never really thought about it before.", Category: "reflection"},
	{Text: "What do you usually do in that case?", Category: "question"},
}

var fillerPhrases = []Prompt{
	{Text: "Let me think...", Tip: "Buy time without going silent"},
	{Text: "That's a good question.", Tip: "Classic filler, buys you two seconds"},
	{Text: "How do I put this...", Tip: "Shows you're thinking, not stuck"},
	{Text: "I mean...", Tip: "Natural transition while you think"},
	{Text: "Actually, you know what?", Tip: "Redirect and buy time"},
	{Text: "It's kind of like...", Tip: "Start a comparison to gain traction"},
	{Text: "I was just thinking about this...", Tip: "Engage while gathering thoughts"},
	{Text: "Off the top of my head...", Tip: "Sets low-stakes expectation"},
	{Text: "Something I've noticed is...", Tip: "Opens personal observation"},
	{Text: "So basically what I'm trying to say is...", Tip: "Restart clearly"},
	{Text: "Bear with me here...", Tip: "Ask for patience naturally"},
	{Text: "The thing is...", Tip: "Signals you have a point coming"},
	{Text: "What I find interesting is...", Tip: "Redirect to something you know"},
	{Text: "From my experience...", Tip: "Anchor to personal knowledge"},
	{Text: "If I had to guess...", Tip: "Makes uncertainty okay"},
}

var topics = []Prompt{
	{Text: "Talk about your favorite food and why you love it."},
	{Text: "Describe your morning routine step by step."},
	{Text: "What would your perfect weekend look like?"},
	{Text: "Talk about a movie or show you watched recently."},
	{Text: "Describe where you live without saying the name."},
	{Text: "What's something you've been learning lately?"},
	{Text: "Talk about a goal you have for this year."},
	{Text: "What do you love most about your city?"},
	{Text: "Describe a person who has inspired you."},
	{Text: "What's something that makes you laugh?"},
	{Text: "Talk about your favorite way to relax."},
	{Text: "What's a skill you wish you had?"},
	{Text: "Describe your ideal working environment."},
	{Text: "Talk about something that surprised you recently."},
	{Text: "What are three things you're grateful for today?"},
}

var situations = []Prompt{
	{
		Text:        "Your coworker asks: how was your weekend?",
		Category:    "small talk",
		Starters:    []string{"It was pretty good, actually...", "Honestly, it was kind of quiet...", "Oh, it was great, I..."},
		Translation: "Tu compañero pregunta: ¿qué tal tu fin de semana?",
	},
	{
		Text:        "A waiter asks what you would like to order.",
		Category:    "restaurant",
		Starters:    []string{"I'd like to have...", "Could I get...", "I think I'll go with..."},
		Translation: "Un mesero te pregunta qué quieres pedir.",
	},
	{
		Text:        "Your manager asks for an update on your project.",
		Category:    "work",
		Starters:    []string{"So far, we've managed to...", "Right now, I'm working on...", "We're almost done with..."},
		Translation: "Tu jefe te pide una actualización de tu proyecto.",
	},
	{
		Text:        "Someone at a party asks what you do for a living.",
		Category:    "small talk",
		Starters:    []string{"I work as a...", "I'm currently in...", "Basically, I help people..."},
		Translation: "Alguien en una fiesta te pregunta a qué te dedicas.",
	},
	{
		Text:        "A stranger asks you for directions to the train station.",
		Category:    "directions",
		Starters:    []string{"Sure, just go straight and...", "It's not far, you need to...", "Let me think, I believe it's..."},
		Translation: "Un desconocido te pregunta cómo llegar a la estación de tren.",
	},
	{
		Text:        "In a job interview, they ask: why should we hire you?",
		Category:    "interview",
		Starters:    []string{"I think I'd be a great fit because...", "What I bring to the table is...", "In my last role, I..."},
		Translation: "En una entrevista te preguntan: ¿por qué deberíamos contratarte?",
	},
	{
		Text:        "A friend asks you to recommend a good movie.",
		Category:    "opinion",
		Starters:    []string{"You should definitely watch...", "I recently saw...", "It depends on what you like, but..."},
		Translation: "Un amigo te pide que le recomiendes una buena película.",
	},
	{
		Text:        "The hotel receptionist says your room is not ready yet.",
		Category:    "travel",
		Starters:    []string{"No problem, could I leave my bags...", "Do you know how long it will take?", "That's fine, is there somewhere I can wait?"},
		Translation: "La recepcionista del hotel dice que tu habitación aún no está lista.",
	},
	{
		Text:        "A colleague disagrees with your idea in a meeting.",
		Category:    "work",
		Starters:    []string{"I see your point, but...", "That's fair, however...", "Let me explain what I mean..."},
		Translation: "Un colega no está de acuerdo con tu idea en una reunión.",
	},
	{
		Text:        "Your neighbour asks if you can keep an eye on their cat.",
		Category:    "favour",
		Starters:    []string{"Sure, I'd be happy to...", "Of course, when are you leaving?", "I'd love to, but this week I..."},
		Translation: "Tu vecino te pregunta si puedes cuidar a su gato.",
	},
	{
		Text:        "The doctor asks how you have been feeling lately.",
		Category:    "health",
		Starters:    []string{"To be honest, I've been feeling...", "Lately I've noticed that...", "Mostly fine, but..."},
		Translation: "El médico te pregunta cómo te has sentido últimamente.",
	},
	{
		Text:        "A customer complains that their order arrived late.",
		Category:    "work",
		Starters:    []string{"I'm really sorry about that...", "Let me check what happened...", "I completely understand, we'll..."},
		Translation: "Un cliente se queja de que su pedido llegó tarde.",
	},
}

var builderSets = []BuilderSet{
	{
		Name:        "Opinions",
		Subjects:    []string{"I think", "In my opinion,", "Honestly,", "The way I see it,"},
		Verbs:       []string{"it's really important to", "we should try to", "it's hard to", "it makes sense to"},
		Complements: []string{"take things slowly.", "keep practising every day.", "ask for help.", "enjoy the process."},
	},
	{
		Name:        "Plans",
		Subjects:    []string{"This weekend", "Next month", "Tomorrow", "Sometime soon"},
		Verbs:       []string{"I'm planning to", "I'd love to", "I'm going to", "I might"},
		Complements: []string{"visit some friends.", "learn something new.", "go somewhere quiet.", "finally finish that project."},
	},
	{
		Name:        "Experiences",
		Subjects:    []string{"Last year", "When I was younger,", "A while ago", "Recently"},
		Verbs:       []string{"I tried to", "I decided to", "I learned how to", "I had the chance to"},
		Complements: []string{"cook a new recipe.", "travel on my own.", "speak in public.", "change my routine."},
	},
}
